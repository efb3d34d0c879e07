package usecase

import (
	"log/slog"
	"slices"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// LocationSource 直前の位置をどの情報から推定したか
type LocationSource int

const (
	SourceLastKnown LocationSource = iota
	SourceAllDay
	SourceWork
	SourceHome
)

func (s LocationSource) String() string {
	switch s {
	case SourceLastKnown:
		return "last_known"
	case SourceAllDay:
		return "all_day"
	case SourceWork:
		return "work"
	default:
		return "home"
	}
}

// Resolution イベントと、その直前にユーザーがいたと推定される場所
type Resolution struct {
	Event         domain.CalendarEvent
	PriorLocation string
	Source        LocationSource
}

// locationState 1カレンダー分の走査中にだけ存在する畳み込み状態
type locationState struct {
	lastLocation string
	lastTime     time.Time

	allDayLocation string
	allDayUntil    time.Time
}

func (s *locationState) observe(location string, at time.Time) {
	s.lastLocation = location
	s.lastTime = at
}

// expireAllDay 終日イベントの期間が過ぎていれば、その場所を終了時刻時点の最終位置として引き継ぐ
func (s *locationState) expireAllDay(at time.Time) {
	if s.allDayLocation == "" || at.Before(s.allDayUntil) {
		return
	}
	if s.lastLocation == "" || !s.lastTime.After(s.allDayUntil) {
		s.observe(s.allDayLocation, s.allDayUntil)
	}
	s.allDayLocation = ""
	s.allDayUntil = time.Time{}
}

// LocationResolver 開始時刻順のイベント列から各イベント直前の所在地を推定する
type LocationResolver struct {
	homeAddress string
	workAddress string
	workHours   WorkHours
	threshold   time.Duration
	logger      *slog.Logger
}

// NewLocationResolver リゾルバを作成
func NewLocationResolver(opts SyncOptions, logger *slog.Logger) *LocationResolver {
	opts = opts.normalized()
	if logger == nil {
		logger = discardLogger()
	}
	return &LocationResolver{
		homeAddress: opts.HomeAddress,
		workAddress: opts.WorkAddress,
		workHours:   opts.WorkHours,
		threshold:   opts.StaleLocationThreshold,
		logger:      logger,
	}
}

// Resolve now 以降に始まる対象イベントごとに直前の所在地を返す
//
// 直前の所在地とイベントの場所が同じ組も返す。移動不要の判定は呼び出し側で行う。
func (r *LocationResolver) Resolve(events []domain.CalendarEvent, now time.Time) []Resolution {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b domain.CalendarEvent) int {
		return a.StartTime.Compare(b.StartTime)
	})

	var state locationState
	var resolutions []Resolution
	for _, event := range ordered {
		if err := event.Validate(); err != nil {
			r.logger.Warn("不正なイベントをスキップしました", "event_id", event.ID, "error", err)
			continue
		}

		state.expireAllDay(event.StartTime)

		if event.IsAllDay {
			if event.Location != "" {
				state.allDayLocation = event.Location
				state.allDayUntil = event.EndTime
			}
			continue
		}
		if !event.Attendance.ConstrainsLocation() {
			r.logger.Debug("参加しないイベントをスキップしました", "event_id", event.ID, "attendance", event.Attendance)
			continue
		}
		if event.Location == "" {
			continue
		}

		// 過去または進行中のイベントは候補にせず、最終位置の更新にだけ使う
		if !event.StartTime.Before(now) {
			prior, source := r.priorLocation(&state, event.StartTime)
			resolutions = append(resolutions, Resolution{
				Event:         event,
				PriorLocation: prior,
				Source:        source,
			})
		}
		// 有効期間はイベントの終了時刻から数える
		state.observe(event.Location, event.EndTime)
	}

	return resolutions
}

func (r *LocationResolver) priorLocation(state *locationState, start time.Time) (string, LocationSource) {
	if state.lastLocation != "" && start.Sub(state.lastTime) < r.threshold {
		return state.lastLocation, SourceLastKnown
	}
	if state.allDayLocation != "" {
		return state.allDayLocation, SourceAllDay
	}
	if r.workAddress != "" && r.workHours.Contains(start) {
		return r.workAddress, SourceWork
	}
	return r.homeAddress, SourceHome
}
