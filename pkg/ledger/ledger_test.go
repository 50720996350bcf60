package ledger

import (
	"math"
	"sync"
	"testing"
)

func TestLedger_RecordAndTotal(t *testing.T) {
	l := New()

	l.Record("character_sheets", 0.040, 6)
	l.Record("panel_render", 0.040, 11)
	l.Record("analysis", 0.015, 1)

	want := 0.040*6 + 0.040*11 + 0.015
	if got := l.Total(); math.Abs(got-want) > 1e-9 {
		t.Errorf("期待した合計 %f, 実際 %f", want, got)
	}

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("期待した記録数 3, 実際 %d", len(entries))
	}

	// 累計は常に単調増加であること
	prev := 0.0
	for i, e := range entries {
		if e.RunningTotal < prev {
			t.Errorf("記録 %d で累計が減少しました: %f -> %f", i, prev, e.RunningTotal)
		}
		prev = e.RunningTotal
	}
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record("panel_render", 0.040, 1)
		}()
	}
	wg.Wait()

	if got := l.Total(); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("並行記録後の合計が不正です: %f", got)
	}
	if len(l.Entries()) != 50 {
		t.Errorf("記録数が欠落しています: %d", len(l.Entries()))
	}
}

func TestImageUnitCost(t *testing.T) {
	tests := []struct {
		size, quality string
		want          float64
	}{
		{"1024x1024", "standard", 0.040},
		{"1024x1024", "hd", 0.080},
		{"1792x1024", "hd", 0.120},
		{"unknown", "standard", 0.040},
		{"1024x1024", "unknown", 0.040},
	}

	for _, tt := range tests {
		if got := ImageUnitCost(tt.size, tt.quality); got != tt.want {
			t.Errorf("ImageUnitCost(%q, %q) = %f, 期待値 %f", tt.size, tt.quality, got, tt.want)
		}
	}
}
