package prompts

import (
	_ "embed"
)

// Mode はプロンプトテンプレートの選択キーです。未定義のモードを渡すと
// Build がエラーを返します。
type Mode string

const (
	ModeAnalysis  Mode = "analysis"
	ModeBreakdown Mode = "breakdown"
)

// TemplateData は解析・コマ割りプロンプトのテンプレートに渡すデータ構造です。
// モードごとに使うフィールドは異なります。
type TemplateData struct {
	// ModeAnalysis 用
	StoryText        string
	StyleInstruction string
	MaxChapters      int
	PointOfView      string

	// ModeBreakdown 用
	ChapterTitle        string
	ChapterSummary      string
	ChapterText         string
	CharacterNames      string
	ArtStyle            string
	MaxCharsPerPanel    int
	TargetPanelsPerPage int
}

var (
	//go:embed analysis.md
	AnalysisPrompt string
	//go:embed breakdown.md
	BreakdownPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[Mode]string{
	ModeAnalysis:  AnalysisPrompt,
	ModeBreakdown: BreakdownPrompt,
}
