package domain

import (
	"strconv"
	"strings"
)

// ChapterSelector は処理対象の章範囲です。"all"、"N"、"N-M" の3形式を
// 受け付けます。ゼロ値は全章を意味します。
type ChapterSelector struct {
	All   bool
	Start int
	End   int
}

// ParseChapterSelector はセレクタ文字列を解析します。
// 解析できない入力は呼び出し側の責任として入力エラーになります。
func ParseChapterSelector(s string) (ChapterSelector, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return ChapterSelector{All: true}, nil
	}

	if start, end, ok := strings.Cut(s, "-"); ok {
		from, err := strconv.Atoi(start)
		if err != nil {
			return ChapterSelector{}, NewError(KindInput, "章セレクタ '%s' を解析できません", s)
		}
		to, err := strconv.Atoi(end)
		if err != nil {
			return ChapterSelector{}, NewError(KindInput, "章セレクタ '%s' を解析できません", s)
		}
		if from <= 0 || to < from {
			return ChapterSelector{}, NewError(KindInput, "章範囲 '%s' が不正です", s)
		}
		return ChapterSelector{Start: from, End: to}, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return ChapterSelector{}, NewError(KindInput, "章セレクタ '%s' を解析できません", s)
	}
	return ChapterSelector{Start: n, End: n}, nil
}

// Contains は章番号がセレクタ範囲に含まれるかを返します。
func (cs ChapterSelector) Contains(number int) bool {
	if cs.All || (cs.Start == 0 && cs.End == 0) {
		return true
	}
	return number >= cs.Start && number <= cs.End
}

func (cs ChapterSelector) String() string {
	if cs.All || (cs.Start == 0 && cs.End == 0) {
		return "all"
	}
	if cs.Start == cs.End {
		return strconv.Itoa(cs.Start)
	}
	return strconv.Itoa(cs.Start) + "-" + strconv.Itoa(cs.End)
}
