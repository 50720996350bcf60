// Package pipeline は物語→コミック生成のステージ実行機です。
// 各ステージは完了まで走るか失敗するかのいずれかで、成功時のみ次へ進みます。
package pipeline

// Stage はパイプラインの実行段階です。遷移は定義順に厳密で、
// 飛ばしも後戻りもありません。
type Stage string

const (
	StageNormalize       Stage = "normalize"
	StageAnalyze         Stage = "analyze"
	StageCharacterSheets Stage = "character_sheets"
	StagePanelBreakdown  Stage = "panel_breakdown"
	StagePanelRender     Stage = "panel_render"
	StageCompose         Stage = "compose"
	StageExport          Stage = "export"
)

// stageCheckpoints はステージ境界ごとの固定進捗値です。粗く、単調で、
// 決して戻りません。連続的な割合計算はしません。
var stageCheckpoints = map[Stage]int{
	StageNormalize:       5,
	StageAnalyze:         10,
	StageCharacterSheets: 30,
	StagePanelBreakdown:  45,
	StagePanelRender:     90,
	StageCompose:         97,
	StageExport:          100,
}

// stageLabels はステータス照会に返す人間向けの短い説明です。
var stageLabels = map[Stage]string{
	StageNormalize:       "テキストを整形しています",
	StageAnalyze:         "物語構造を解析しています",
	StageCharacterSheets: "キャラクターシートを生成しています",
	StagePanelBreakdown:  "コマ割りを計画しています",
	StagePanelRender:     "パネルを描画しています",
	StageCompose:         "ページを合成しています",
	StageExport:          "成果物を書き出しています",
}

// Checkpoint はステージ完了時の進捗値を返します。
func (s Stage) Checkpoint() int {
	return stageCheckpoints[s]
}

// Label はステージの表示名を返します。
func (s Stage) Label() string {
	return stageLabels[s]
}
