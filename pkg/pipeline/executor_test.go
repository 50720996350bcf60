package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-kit/pkg/collab"
	"github.com/shouni/go-comic-kit/pkg/compose"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/export"
)

// --- テスト用フェイク ---

type fakeAnalyzer struct {
	spec domain.ProjectSpec
	err  error
}

func (f *fakeAnalyzer) Analyze(context.Context, string, string, string) (domain.ProjectSpec, error) {
	return f.spec, f.err
}

type fakePlanner struct {
	plans []domain.ChapterPlan
	err   error
}

func (f *fakePlanner) BreakdownChapters(context.Context, domain.ProjectSpec, []string, domain.ChapterSelector) ([]domain.ChapterPlan, error) {
	return f.plans, f.err
}

type fakeSynthesizer struct {
	mu        sync.Mutex
	imageData []byte
	calls     int
	// failContains を含むプロンプトはコンテンツ拒否として失敗させます。
	failContains string
	sheetErr     error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req collab.ImageRequest) (collab.ImageResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if strings.Contains(req.Prompt, "character reference sheet") && f.sheetErr != nil {
		return collab.ImageResult{}, f.sheetErr
	}
	if f.failContains != "" && strings.Contains(req.Prompt, f.failContains) {
		return collab.ImageResult{}, domain.NewError(domain.KindContentRejection, "content policy violation")
	}
	return collab.ImageResult{Data: f.imageData, MimeType: "image/png"}, nil
}

func (f *fakeSynthesizer) UploadReference(context.Context, string) (string, error) {
	return "files/ref-001", nil
}

type fakeResolver struct {
	err      error
	failFrom int
	calls    int
}

func (f *fakeResolver) Resolve(string) (domain.Session, error) {
	f.calls++
	if f.err != nil && (f.failFrom == 0 || f.calls >= f.failFrom) {
		return domain.Session{}, f.err
	}
	return domain.Session{ID: "s-1"}, nil
}

type recordingTracker struct {
	mu          sync.Mutex
	progresses  []int
	labels      []string
	cost        float64
	cancelAfter int // 0なら無効。Progress呼び出しがこの回数に達したらキャンセル扱い。
	calls       int
}

func (t *recordingTracker) Checkpoint(stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progresses = append(t.progresses, stage.Checkpoint())
}

func (t *recordingTracker) Progress(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.labels = append(t.labels, label)
}

func (t *recordingTracker) CostSoFar(total float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cost = total
}

func (t *recordingTracker) CancelRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelAfter > 0 && t.calls >= t.cancelAfter
}

type memoryWriter struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{files: make(map[string][]byte)}
}

func (w *memoryWriter) Write(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = buf
	return nil
}

// --- テストデータ ---

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func testSpec() domain.ProjectSpec {
	return domain.ProjectSpec{
		Chapters: []domain.Chapter{
			{Number: 1, Title: "Opening", StartParagraph: 0, EndParagraph: 1},
		},
		Characters: []domain.Character{
			{Name: "Aoi", PhysicalFeatures: "short black hair"},
		},
		Style: domain.StyleGuide{ArtStyle: "manga"},
	}
}

func testPlans(descriptions ...string) []domain.ChapterPlan {
	page := domain.PlannedPage{PageNumber: 1, Layout: domain.Layout3Grid}
	for i, desc := range descriptions {
		page.Panels = append(page.Panels, domain.Panel{
			Sequence:    i + 1,
			Description: desc,
			Characters:  []string{"Aoi"},
		})
	}
	return []domain.ChapterPlan{{ChapterNumber: 1, ChapterTitle: "Opening", Pages: []domain.PlannedPage{page}}}
}

func newTestExecutor(t *testing.T, analyzer collab.NarrativeAnalyzer, planner collab.PanelPlanner, synth collab.ImageSynthesizer, resolver SessionResolver) (*Executor, *memoryWriter) {
	t.Helper()
	writer := newMemoryWriter()
	engine := compose.NewEngine(compose.Geometry{
		PageWidth: 300, PageHeight: 400, GutterWidth: 4, Margin: 8, MaxFlowHeight: 1200,
	})
	exporter := export.New(writer, "output")

	cfg := Config{
		RenderWorkers: 2,
		MaxRetries:    1,
		RetryBackoff:  time.Millisecond,
		RateInterval:  time.Millisecond,
		ImageSize:     "1024x1024",
		ImageQuality:  "standard",
		OutputDir:     "output",
	}
	return New(analyzer, planner, synth, engine, exporter, writer, resolver, cfg), writer
}

// --- テスト本体 ---

func TestExecutor_Run_完走(t *testing.T) {
	synth := &fakeSynthesizer{imageData: tinyPNG(t)}
	exec, writer := newTestExecutor(t,
		&fakeAnalyzer{spec: testSpec()},
		&fakePlanner{plans: testPlans("Aoi wakes up.", "Aoi runs to school.")},
		synth,
		&fakeResolver{},
	)

	tracker := &recordingTracker{}
	result, err := exec.Run(context.Background(), Request{
		JobID:     "job-1",
		SessionID: "s-1",
		StoryText: "A quiet morning. The day begins.",
		Format:    domain.FormatPDF,
	}, tracker)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Partial {
		t.Error("全パネル成功なのに partial になっています")
	}
	if result.Artifact.Path == "" || result.Artifact.PageCount == 0 {
		t.Errorf("Artifact = %+v", result.Artifact)
	}

	// シート3枚 + パネル2枚 = 5回分の記帳。
	wantCost := 0.040 * 5
	if math.Abs(result.TotalCost-wantCost) > 1e-9 {
		t.Errorf("TotalCost = %f, want %f", result.TotalCost, wantCost)
	}

	// 進捗チェックポイントは単調非減少で、最後は100です。
	last := 0
	for _, p := range tracker.progresses {
		if p < last {
			t.Errorf("進捗が後退しています: %v", tracker.progresses)
		}
		last = p
	}
	if last != 100 {
		t.Errorf("最終進捗 = %d, want 100", last)
	}

	// キャラクターシートは出力先へ保存されています。
	found := false
	for p := range writer.files {
		if strings.Contains(p, "characters/Aoi_front.png") {
			found = true
		}
	}
	if !found {
		t.Error("キャラクターシートが保存されていません")
	}
}

func TestExecutor_Run_パネル部分失敗(t *testing.T) {
	synth := &fakeSynthesizer{imageData: tinyPNG(t), failContains: "forbidden scene"}
	exec, _ := newTestExecutor(t,
		&fakeAnalyzer{spec: testSpec()},
		&fakePlanner{plans: testPlans("Aoi wakes up.", "forbidden scene unfolds.", "Aoi smiles.")},
		synth,
		&fakeResolver{},
	)

	tracker := &recordingTracker{}
	result, err := exec.Run(context.Background(), Request{
		JobID: "job-2", SessionID: "s-1", StoryText: "Morning.", Format: domain.FormatPDF,
	}, tracker)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !result.Partial {
		t.Error("パネル失敗があるのに partial=false です")
	}
	// 拒否されたパネルの分は記帳されません: シート3枚 + 成功パネル2枚。
	wantCost := 0.040 * 5
	if math.Abs(result.TotalCost-wantCost) > 1e-9 {
		t.Errorf("TotalCost = %f, want %f", result.TotalCost, wantCost)
	}
}

func TestExecutor_Run_シート失敗はジョブ失敗(t *testing.T) {
	synth := &fakeSynthesizer{
		imageData: tinyPNG(t),
		sheetErr:  domain.NewError(domain.KindContentRejection, "rejected"),
	}
	exec, _ := newTestExecutor(t,
		&fakeAnalyzer{spec: testSpec()},
		&fakePlanner{plans: testPlans("Aoi wakes up.")},
		synth,
		&fakeResolver{},
	)

	_, err := exec.Run(context.Background(), Request{
		JobID: "job-3", SessionID: "s-1", StoryText: "Morning.", Format: domain.FormatPDF,
	}, &recordingTracker{})
	if domain.KindOf(err) != domain.KindContentRejection {
		t.Errorf("KindOf(err) = %v, want %v", domain.KindOf(err), domain.KindContentRejection)
	}
}

func TestExecutor_Run_キャンセル(t *testing.T) {
	exec, _ := newTestExecutor(t,
		&fakeAnalyzer{spec: testSpec()},
		&fakePlanner{plans: testPlans("Aoi wakes up.")},
		&fakeSynthesizer{imageData: tinyPNG(t)},
		&fakeResolver{},
	)

	// 最初の Progress 呼び出し直後にキャンセル要求が立ちます。
	tracker := &recordingTracker{cancelAfter: 1}
	_, err := exec.Run(context.Background(), Request{
		JobID: "job-4", SessionID: "s-1", StoryText: "Morning.", Format: domain.FormatPDF,
	}, tracker)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

func TestExecutor_Run_セッション失効(t *testing.T) {
	// 3回目以降の Resolve（CharacterSheets 境界）で失効させます。
	resolver := &fakeResolver{err: domain.ErrSessionExpired, failFrom: 3}
	exec, _ := newTestExecutor(t,
		&fakeAnalyzer{spec: testSpec()},
		&fakePlanner{plans: testPlans("Aoi wakes up.")},
		&fakeSynthesizer{imageData: tinyPNG(t)},
		resolver,
	)

	_, err := exec.Run(context.Background(), Request{
		JobID: "job-5", SessionID: "s-1", StoryText: "Morning.", Format: domain.FormatPDF,
	}, &recordingTracker{})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestExecutor_Run_スキーマ違反は再試行しない(t *testing.T) {
	analyzer := &fakeAnalyzer{err: domain.NewError(domain.KindSchemaViolation, "broken json")}
	exec, _ := newTestExecutor(t, analyzer, &fakePlanner{}, &fakeSynthesizer{imageData: tinyPNG(t)}, &fakeResolver{})

	_, err := exec.Run(context.Background(), Request{
		JobID: "job-6", SessionID: "s-1", StoryText: "Morning.", Format: domain.FormatPDF,
	}, &recordingTracker{})
	if domain.KindOf(err) != domain.KindSchemaViolation {
		t.Errorf("KindOf(err) = %v, want %v", domain.KindOf(err), domain.KindSchemaViolation)
	}
}
