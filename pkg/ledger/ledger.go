// Package ledger はジョブ単位の推定コストを追記専用で積算します。
// 合計は常に加算で維持され、再計算はしません。閾値はこのコアでは
// 助言的な情報であり、強制は呼び出し側の責務です。
package ledger

import (
	"sync"
)

// 画像生成のサイズ・品質別ユニットコスト表（USD）です。
var imageCosts = map[string]map[string]float64{
	"1024x1024": {"standard": 0.040, "hd": 0.080},
	"1024x1792": {"standard": 0.080, "hd": 0.120},
	"1792x1024": {"standard": 0.080, "hd": 0.120},
}

const defaultImageCost = 0.040

// ImageUnitCost はサイズと品質からユニットコストを引きます。
// 未知の組み合わせは標準サイズの料金にフォールバックします。
func ImageUnitCost(size, quality string) float64 {
	if byQuality, ok := imageCosts[size]; ok {
		if cost, ok := byQuality[quality]; ok {
			return cost
		}
	}
	return defaultImageCost
}

// Entry は1回の記録です。一度追記された行は編集されません。
type Entry struct {
	Stage        string  `json:"stage"`
	UnitCost     float64 `json:"unit_cost"`
	Count        int     `json:"count"`
	RunningTotal float64 `json:"running_total"`
}

// Ledger はジョブスコープのコスト台帳です。ジョブ間で共有しません。
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	total   float64
}

// New は空の台帳を返します。
func New() *Ledger {
	return &Ledger{}
}

// Record はステージ名・ユニットコスト・回数を追記し、累計を更新します。
func (l *Ledger) Record(stage string, unitCost float64, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total += unitCost * float64(count)
	l.entries = append(l.entries, Entry{
		Stage:        stage,
		UnitCost:     unitCost,
		Count:        count,
		RunningTotal: l.total,
	})
}

// Total は現在の累計を返します。
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Entries は記録の複製を返します。
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
