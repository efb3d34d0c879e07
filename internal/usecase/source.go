package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// MergedStreamID MergedSource が返すストリームのID
const MergedStreamID = "merged"

// EventStream 1回の畳み込みで処理するイベント列
type EventStream struct {
	CalendarID string
	Events     []domain.CalendarEvent
}

// EventSource 監視対象カレンダーのイベントを畳み込み単位のストリームとして返す
type EventSource interface {
	Streams(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]EventStream, error)
}

// PerCalendarSource カレンダーごとに独立したストリームを返す
//
// 別カレンダーにある直前のイベントは参照されない。カレンダーをまたいだ
// 位置の引き継ぎが必要な場合は MergedSource を使う。
type PerCalendarSource struct {
	lister EventLister
}

// NewPerCalendarSource カレンダー単位のソースを作成
func NewPerCalendarSource(lister EventLister) *PerCalendarSource {
	return &PerCalendarSource{lister: lister}
}

// Streams カレンダーごとのイベント列を返す
func (s *PerCalendarSource) Streams(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]EventStream, error) {
	streams := make([]EventStream, 0, len(calendarIDs))
	for _, calendarID := range calendarIDs {
		events, err := s.lister.ListEvents(ctx, calendarID, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("カレンダー %s のイベント取得に失敗しました: %w", calendarID, err)
		}
		streams = append(streams, EventStream{CalendarID: calendarID, Events: events})
	}
	return streams, nil
}

// MergedSource 全カレンダーのイベントを開始時刻順に1本へまとめる
type MergedSource struct {
	lister EventLister
}

// NewMergedSource カレンダー横断のソースを作成
func NewMergedSource(lister EventLister) *MergedSource {
	return &MergedSource{lister: lister}
}

// Streams 全カレンダーを統合した1本のイベント列を返す
//
// 複数のカレンダーに同じイベントIDがある場合(招待の共有など)は最初のものを使う。
func (s *MergedSource) Streams(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]EventStream, error) {
	seen := make(map[string]struct{})
	var merged []domain.CalendarEvent
	for _, calendarID := range calendarIDs {
		events, err := s.lister.ListEvents(ctx, calendarID, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("カレンダー %s のイベント取得に失敗しました: %w", calendarID, err)
		}
		for _, event := range events {
			if _, ok := seen[event.ID]; ok {
				continue
			}
			seen[event.ID] = struct{}{}
			merged = append(merged, event)
		}
	}

	slices.SortStableFunc(merged, func(a, b domain.CalendarEvent) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return []EventStream{{CalendarID: MergedStreamID, Events: merged}}, nil
}
