package domain

import (
	"regexp"
	"strings"
)

// CorrelationPrefix バッファイベントの説明文で元イベントIDを示す行の接頭辞
const CorrelationPrefix = "Tied to event: "

// カレンダーのWeb画面で編集すると改行が <br> に置き換わる
var htmlLineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// CorrelationLine 元イベントIDを埋め込んだ相関行を作成
func CorrelationLine(sourceEventID string) string {
	return CorrelationPrefix + sourceEventID
}

// CorrelationKey 説明文の相関行から元イベントIDを取り出す
//
// 相関行は最終行に書き込むが、後から追記されても読めるよう末尾から探す。
func CorrelationKey(description string) (string, bool) {
	normalized := htmlLineBreak.ReplaceAllString(description, "\n")
	lines := strings.Split(normalized, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, CorrelationPrefix) {
			continue
		}
		if id := strings.TrimSpace(strings.TrimPrefix(line, CorrelationPrefix)); id != "" {
			return id, true
		}
	}
	return "", false
}

// BufferIndex 相関キーから既存バッファイベントへの対応表
type BufferIndex map[string]CalendarEvent

// NewBufferIndex バッファカレンダーのイベントから対応表を構築
//
// 同じ相関キーを持つイベントが複数ある場合は最初のものを残し、重複IDを返す。
func NewBufferIndex(events []CalendarEvent) (BufferIndex, []string) {
	index := make(BufferIndex, len(events))
	var duplicates []string
	for _, event := range events {
		key, ok := CorrelationKey(event.Description)
		if !ok {
			continue
		}
		if _, exists := index[key]; exists {
			duplicates = append(duplicates, key)
			continue
		}
		index[key] = event
	}
	return index, duplicates
}

// Has 元イベントIDに対応するバッファイベントが存在するか
func (idx BufferIndex) Has(sourceEventID string) bool {
	_, ok := idx[sourceEventID]
	return ok
}
