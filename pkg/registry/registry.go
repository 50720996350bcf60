// Package registry はキャラクターごとの正準ビジュアルテンプレートを
// ジョブスコープで保持します。テンプレートはキャラクターシート生成
// ステージで作られ、以降の全パネル生成呼び出しが名前で参照します。
package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ReferenceImage はテンプレートに紐づく1ポーズ分の参照画像です。
type ReferenceImage struct {
	Angle  string
	Handle string
}

// Template は1キャラクター分の正準プロンプト断片と参照画像の集合です。
// 登録後は参照されるだけで、変更されることはありません。
type Template struct {
	Name           string
	PromptFragment string
	Seed           int64
	References     []ReferenceImage
}

// Registry はキャラクター名をキーとするテンプレート置き場です。
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// New は空のレジストリを返します。
func New() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

// Put はテンプレートを登録します。同名の再登録は上書きです（再生成フロー
// でのみ使用）。上書きは以後の呼び出しにのみ影響し、レンダリング済みの
// パネルを無効化することはありません。
func (r *Registry) Put(name string, tmpl Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tmpl.Name = name
	r.templates[name] = tmpl
}

// Get は名前でテンプレートを引きます。欠落はパネルレンダリング中であれば
// 致命的なパイプラインエラーです。コマ割りが未宣言キャラクターを参照した
// ことを意味するためです。
func (r *Registry) Get(name string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[name]
	if !ok {
		return Template{}, domain.NewError(domain.KindConsistency,
			"キャラクター '%s' のテンプレートが登録されていません", name)
	}
	return tmpl, nil
}

// Len は登録済みテンプレート数を返します。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// SeedFromName は名前から決定論的なシード値を生成します。
// 明示的なシード指定がなくても、同じ名前なら常に同じシードになります。
func SeedFromName(name string) int64 {
	hash := sha256.Sum256([]byte(name))
	seed := int32(binary.BigEndian.Uint32(hash[:4]))
	// 生成サービスのシード値は正の数が望ましいため、最上位ビットを落とします
	return int64(seed & 0x7FFFFFFF)
}
