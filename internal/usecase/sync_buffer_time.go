package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// SkipReason バッファイベントを作成しなかった理由
type SkipReason string

const (
	SkipAlreadySynced SkipReason = "already_synced"
	SkipNoCommute     SkipReason = "no_commute"
	SkipNoViableRoute SkipReason = "no_viable_route"
)

// Decision 作成するバッファイベント1件分の判断
type Decision struct {
	Source domain.CalendarEvent
	Origin string
	Buffer domain.CalendarEvent
}

// Plan 1ストリーム分の作成判断
type Plan struct {
	Decisions []Decision
	Skipped   map[SkipReason]int
}

// SyncReport 1回の同期の結果
type SyncReport struct {
	RunID   string
	Streams int
	Created []Decision
	Skipped map[SkipReason]int
}

// BufferSynchronizer 監視カレンダーを走査し、不足しているバッファイベントを作成する
type BufferSynchronizer struct {
	repo     CalendarRepository
	source   EventSource
	resolver *LocationResolver
	selector *DurationSelector
	reporter RunReporter
	opts     SyncOptions
	logger   *slog.Logger
	clock    func() time.Time
}

// NewBufferSynchronizer 同期処理を作成
//
// source が nil の場合はカレンダーごとに独立して走査する。
func NewBufferSynchronizer(repo CalendarRepository, source EventSource, oracle TravelDurationOracle, opts SyncOptions, logger *slog.Logger) *BufferSynchronizer {
	opts = opts.normalized()
	if logger == nil {
		logger = discardLogger()
	}
	if source == nil {
		source = NewPerCalendarSource(repo)
	}
	return &BufferSynchronizer{
		repo:     repo,
		source:   source,
		resolver: NewLocationResolver(opts, logger),
		selector: NewDurationSelector(oracle, opts, logger),
		opts:     opts,
		logger:   logger,
		clock:    time.Now,
	}
}

// SetReporter 同期後に結果を通知するレポーターを設定
func (s *BufferSynchronizer) SetReporter(reporter RunReporter) {
	s.reporter = reporter
}

// Plan イベント列からバッファイベントの作成判断を計算する
//
// カレンダーへの書き込みは行わない。index にある元イベントはスキップする。
func (s *BufferSynchronizer) Plan(ctx context.Context, events []domain.CalendarEvent, index domain.BufferIndex, now time.Time) (Plan, error) {
	plan := Plan{Skipped: make(map[SkipReason]int)}
	planned := make(map[string]struct{})

	for _, resolution := range s.resolver.Resolve(events, now) {
		event := resolution.Event
		logger := s.logger.With("event_id", event.ID, "start", event.StartTime.Format(time.RFC3339))

		if _, ok := planned[event.ID]; ok || index.Has(event.ID) {
			logger.Debug("同期済みのためスキップしました")
			plan.Skipped[SkipAlreadySynced]++
			continue
		}
		if resolution.PriorLocation == event.Location {
			logger.Debug("移動不要のためスキップしました", "location", event.Location)
			plan.Skipped[SkipNoCommute]++
			continue
		}

		selection, err := s.selector.Select(ctx, resolution.PriorLocation, event.Location, event.StartTime)
		if errors.Is(err, domain.ErrNoViableRoute) {
			logger.Info("経路がないためスキップしました", "origin", resolution.PriorLocation, "destination", event.Location, "reason", err)
			plan.Skipped[SkipNoViableRoute]++
			continue
		}
		if err != nil {
			return plan, fmt.Errorf("所要時間の選択に失敗しました (event=%s): %w", event.ID, err)
		}

		plan.Decisions = append(plan.Decisions, Decision{
			Source: event,
			Origin: resolution.PriorLocation,
			Buffer: s.buildBufferEvent(event, resolution.PriorLocation, selection),
		})
		planned[event.ID] = struct{}{}
	}

	return plan, nil
}

// buildBufferEvent 元イベントの直前に置くバッファイベントを構築
func (s *BufferSynchronizer) buildBufferEvent(source domain.CalendarEvent, origin string, selection Selection) domain.CalendarEvent {
	// 読み込めないタイムゾーン名はそのまま送らず、既定のタイムゾーンにそろえる
	loc := domain.Location(source.TimeZone, s.opts.Location)
	end := source.StartTime.In(loc)

	return domain.CalendarEvent{
		Title:       selection.Summary,
		StartTime:   end.Add(-selection.Duration),
		EndTime:     end,
		TimeZone:    loc.String(),
		Description: buildDescription(origin, source.Location, selection.Lines, source.ID),
		Attendance:  domain.AttendanceOrganizer,
	}
}

// Run 1回分の同期を実行する
//
// 監視カレンダーはストリームごとに計画してから作成する。作成済みのイベントは
// 対応表に追加し、後続のストリームで重複作成しない。
func (s *BufferSynchronizer) Run(ctx context.Context) (SyncReport, error) {
	now := s.clock()
	report := SyncReport{
		RunID:   uuid.NewString(),
		Skipped: make(map[SkipReason]int),
	}
	logger := s.logger.With("run_id", report.RunID)

	calendars, err := s.repo.ListCalendars(ctx)
	if err != nil {
		return report, fmt.Errorf("カレンダー一覧の取得に失敗しました: %w", err)
	}

	bufferCalendarID, ok := calendars[s.opts.BufferCalendarName]
	if !ok {
		bufferCalendarID, err = s.repo.CreateCalendar(ctx, s.opts.BufferCalendarName)
		if err != nil {
			return report, fmt.Errorf("バッファカレンダーの作成に失敗しました: %w", err)
		}
		logger.Info("バッファカレンダーを作成しました", "name", s.opts.BufferCalendarName, "calendar_id", bufferCalendarID)
	}

	timeMin := now.Add(-s.opts.Lookback)
	timeMax := s.opts.HorizonEnd(now)
	logger.Info("同期を開始します", "time_min", timeMin.Format(time.RFC3339), "time_max", timeMax.Format(time.RFC3339))

	existing, err := s.repo.ListEvents(ctx, bufferCalendarID, timeMin, timeMax)
	if err != nil {
		return report, fmt.Errorf("バッファイベントの取得に失敗しました: %w", err)
	}
	index, duplicates := domain.NewBufferIndex(existing)
	for _, key := range duplicates {
		logger.Warn("同じ元イベントに複数のバッファイベントがあります", "source_event_id", key)
	}

	calendarIDs := s.watchedCalendarIDs(calendars, bufferCalendarID, logger)
	streams, err := s.source.Streams(ctx, calendarIDs, timeMin, timeMax)
	if err != nil {
		return report, err
	}

	for _, stream := range streams {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		plan, err := s.Plan(ctx, stream.Events, index, now)
		for reason, n := range plan.Skipped {
			report.Skipped[reason] += n
		}
		if err != nil {
			return report, err
		}

		for _, decision := range plan.Decisions {
			created, err := s.repo.InsertEvent(ctx, bufferCalendarID, decision.Buffer)
			if err != nil {
				return report, fmt.Errorf("バッファイベントの作成に失敗しました (event=%s): %w", decision.Source.ID, err)
			}
			index[decision.Source.ID] = created
			decision.Buffer = created
			report.Created = append(report.Created, decision)
			logger.Info("バッファイベントを作成しました",
				"calendar_id", stream.CalendarID,
				"source_event_id", decision.Source.ID,
				"summary", created.Title,
				"start", created.StartTime.Format(time.RFC3339),
				"end", created.EndTime.Format(time.RFC3339))
		}
		report.Streams++
	}

	logger.Info("同期が完了しました",
		"created", len(report.Created),
		"already_synced", report.Skipped[SkipAlreadySynced],
		"no_commute", report.Skipped[SkipNoCommute],
		"no_viable_route", report.Skipped[SkipNoViableRoute])

	if s.reporter != nil && len(report.Created) > 0 {
		if err := s.reporter.ReportSync(ctx, report); err != nil {
			logger.Warn("同期結果の通知に失敗しました", "error", err)
		}
	}

	return report, nil
}

// watchedCalendarIDs 設定された表示名を順にIDへ解決する
func (s *BufferSynchronizer) watchedCalendarIDs(calendars map[string]string, bufferCalendarID string, logger *slog.Logger) []string {
	ids := make([]string, 0, len(s.opts.WatchedCalendars))
	for _, name := range s.opts.WatchedCalendars {
		id, ok := calendars[name]
		if !ok {
			logger.Warn("監視対象のカレンダーが見つかりません", "name", name)
			continue
		}
		if id == bufferCalendarID {
			logger.Warn("バッファカレンダーは監視対象にできません", "name", name)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
