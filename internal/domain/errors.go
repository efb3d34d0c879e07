package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoViableRoute 優先移動手段の所要時間が得られない、または上限を超える
	ErrNoViableRoute = errors.New("no viable route")

	// ErrMalformedEvent 分類に必要な項目が欠けているイベント
	ErrMalformedEvent = errors.New("malformed event")

	// ErrCollaboratorUnavailable カレンダーや地図サービスに到達できない、または認証に失敗した
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// MalformedEventError ErrMalformedEvent をラップしたエラーを作成
func MalformedEventError(eventID, reason string) error {
	return fmt.Errorf("%w: event=%s: %s", ErrMalformedEvent, eventID, reason)
}
