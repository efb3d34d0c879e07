package usecase

import (
	"context"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// EventLister カレンダーからイベントを開始時刻順に取得するポート
//
// 期間は [timeMin, timeMax) の半開区間。
type EventLister interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.CalendarEvent, error)
}

// CalendarRepository カレンダーサービスへのポート
type CalendarRepository interface {
	EventLister

	// ListCalendars 表示名からカレンダーIDへの対応を返す
	ListCalendars(ctx context.Context) (map[string]string, error)
	CreateCalendar(ctx context.Context, name string) (string, error)
	InsertEvent(ctx context.Context, calendarID string, event domain.CalendarEvent) (domain.CalendarEvent, error)
}

// TravelDurationOracle 移動時間を返すポート
//
// 経路が存在しない場合は found=false でエラーは返さない。
type TravelDurationOracle interface {
	Duration(ctx context.Context, origin, destination string, mode domain.TransportMode, arrival time.Time) (d time.Duration, found bool, err error)
}

// RunReporter 同期結果を通知するポート
type RunReporter interface {
	ReportSync(ctx context.Context, report SyncReport) error
}
