package usecase

import (
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

const (
	DefaultBufferCalendarName     = "Buffer time"
	DefaultStaleLocationThreshold = 4 * time.Hour
	DefaultMaxBufferDuration      = 6 * time.Hour
)

// DefaultTransportLabels 移動手段ごとの絵文字
var DefaultTransportLabels = map[domain.TransportMode]string{
	domain.TransportDriving:   "🚗",
	domain.TransportWalking:   "🚶",
	domain.TransportBicycling: "🚴",
	domain.TransportTransit:   "🚆",
}

// WorkHours 勤務先にいるとみなす曜日と時間帯
type WorkHours struct {
	Start time.Duration // 0時からの経過時間
	End   time.Duration
	Days  []time.Weekday
}

// DefaultWorkDays 月曜から金曜
var DefaultWorkDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// Contains t の壁時計時刻が勤務時間内かどうか
func (w WorkHours) Contains(t time.Time) bool {
	if w.End <= w.Start || !slices.Contains(w.Days, t.Weekday()) {
		return false
	}
	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	return sinceMidnight >= w.Start && sinceMidnight < w.End
}

// SyncOptions 同期処理の設定値
//
// NewBufferSynchronizer に渡した後は変更されない。スライスとマップは内部で複製する。
type SyncOptions struct {
	HomeAddress string
	WorkAddress string
	WorkHours   WorkHours

	WatchedCalendars   []string
	BufferCalendarName string

	StaleLocationThreshold time.Duration
	MaxBufferDuration      time.Duration
	// Lookback 最終位置を初期化するために now より前に遡る期間
	Lookback time.Duration
	// ScanHorizon 0 の場合は翌ISO週の終わりまで
	ScanHorizon time.Duration

	PreferredTransport domain.TransportMode
	TransportPriority  []domain.TransportMode
	TransportLabels    map[domain.TransportMode]string

	// Location イベントにタイムゾーンがない場合と週境界の計算に使う
	Location *time.Location
}

// DefaultSyncOptions 既定値で埋めた設定を返す
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{}.normalized()
}

func (o SyncOptions) normalized() SyncOptions {
	if o.BufferCalendarName == "" {
		o.BufferCalendarName = DefaultBufferCalendarName
	}
	if o.StaleLocationThreshold <= 0 {
		o.StaleLocationThreshold = DefaultStaleLocationThreshold
	}
	if o.MaxBufferDuration <= 0 {
		o.MaxBufferDuration = DefaultMaxBufferDuration
	}
	if o.Lookback <= 0 {
		o.Lookback = o.StaleLocationThreshold
	}
	if o.PreferredTransport == "" {
		o.PreferredTransport = domain.TransportDriving
	}
	if len(o.TransportPriority) == 0 {
		o.TransportPriority = domain.DefaultTransportPriority
	}
	o.TransportPriority = slices.Clone(o.TransportPriority)
	if !slices.Contains(o.TransportPriority, o.PreferredTransport) {
		o.TransportPriority = append(o.TransportPriority, o.PreferredTransport)
	}

	labels := make(map[domain.TransportMode]string, len(DefaultTransportLabels))
	for mode, label := range DefaultTransportLabels {
		labels[mode] = label
	}
	for mode, label := range o.TransportLabels {
		labels[mode] = label
	}
	o.TransportLabels = labels

	o.WatchedCalendars = slices.Clone(o.WatchedCalendars)
	o.WorkHours.Days = slices.Clone(o.WorkHours.Days)
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// HorizonEnd 走査期間の終端を返す
func (o SyncOptions) HorizonEnd(now time.Time) time.Time {
	if o.ScanHorizon > 0 {
		return now.Add(o.ScanHorizon)
	}
	return endOfNextISOWeek(now.In(o.Location))
}

// endOfNextISOWeek 翌週(月曜始まり)の終わり、つまり翌々週月曜の0時
func endOfNextISOWeek(t time.Time) time.Time {
	isoWeekday := int(t.Weekday())
	if isoWeekday == 0 {
		isoWeekday = 7
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, 8-isoWeekday+7)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
