package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// GoogleCalendarRepository Google Calendar APIを使用したCalendarRepositoryの実装
type GoogleCalendarRepository struct {
	service  *calendar.Service
	timezone *time.Location
	logger   *slog.Logger
}

// NewGoogleCalendarRepository Google Calendarリポジトリを作成
//
// credentialsJSON はサービスアカウントまたは authorized_user 形式の認証情報。
func NewGoogleCalendarRepository(ctx context.Context, credentialsJSON []byte, timezone *time.Location, logger *slog.Logger) (*GoogleCalendarRepository, error) {
	// バッファイベントを書き込むため読み書きスコープで認証
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %v", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %v", err)
	}

	return NewGoogleCalendarRepositoryWithService(service, timezone, logger), nil
}

// NewGoogleCalendarRepositoryWithService 作成済みのサービスからリポジトリを作成
func NewGoogleCalendarRepositoryWithService(service *calendar.Service, timezone *time.Location, logger *slog.Logger) *GoogleCalendarRepository {
	if timezone == nil {
		timezone = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleCalendarRepository{
		service:  service,
		timezone: timezone,
		logger:   logger,
	}
}

// ListCalendars カレンダーの表示名からIDへの対応を取得
func (r *GoogleCalendarRepository) ListCalendars(ctx context.Context) (map[string]string, error) {
	calendars := make(map[string]string)
	err := r.service.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			// ユーザーが付けた名前を優先
			name := item.SummaryOverride
			if name == "" {
				name = item.Summary
			}
			calendars[name] = item.Id
		}
		return nil
	})
	if err != nil {
		return nil, collaboratorError("カレンダー一覧の取得に失敗しました", err)
	}
	return calendars, nil
}

// CreateCalendar 指定された名前のカレンダーを作成
func (r *GoogleCalendarRepository) CreateCalendar(ctx context.Context, name string) (string, error) {
	created, err := r.service.Calendars.Insert(&calendar.Calendar{
		Summary:  name,
		TimeZone: r.timezone.String(),
	}).Context(ctx).Do()
	if err != nil {
		return "", collaboratorError("カレンダーの作成に失敗しました", err)
	}
	return created.Id, nil
}

// ListEvents 指定された期間 [timeMin, timeMax) の予定を開始時刻順に取得
func (r *GoogleCalendarRepository) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.CalendarEvent, error) {
	timeMinStr := timeMin.Format(time.RFC3339)
	timeMaxStr := timeMax.Format(time.RFC3339)

	r.logger.Debug("Google Calendar API リクエスト", "calendar_id", calendarID, "time_min", timeMinStr, "time_max", timeMaxStr)

	var items []*calendar.Event
	err := r.service.Events.List(calendarID).
		TimeMin(timeMinStr).
		TimeMax(timeMaxStr).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Pages(ctx, func(events *calendar.Events) error {
			items = append(items, events.Items...)
			return nil
		})
	if err != nil {
		return nil, collaboratorError("カレンダーイベントの取得に失敗しました", err)
	}

	r.logger.Debug("取得したイベント数", "calendar_id", calendarID, "count", len(items))

	// イベントを変換
	domainEvents := make([]domain.CalendarEvent, 0, len(items))
	for _, event := range items {
		if event.Status == "cancelled" {
			continue
		}
		domainEvent, err := r.convertToEvent(event)
		if err != nil {
			r.logger.Warn("イベントの変換をスキップしました", "calendar_id", calendarID, "event_id", event.Id, "error", err)
			continue
		}
		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// InsertEvent バッファイベントを作成
func (r *GoogleCalendarRepository) InsertEvent(ctx context.Context, calendarID string, event domain.CalendarEvent) (domain.CalendarEvent, error) {
	body := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.StartTime.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.EndTime.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}

	created, err := r.service.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return domain.CalendarEvent{}, collaboratorError("バッファイベントの作成に失敗しました", err)
	}

	createdEvent, err := r.convertToEvent(created)
	if err != nil {
		// 作成自体は成功しているので入力値にIDを付けて返す
		event.ID = created.Id
		return event, nil
	}
	return createdEvent, nil
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func (r *GoogleCalendarRepository) convertToEvent(event *calendar.Event) (domain.CalendarEvent, error) {
	domainEvent := domain.CalendarEvent{
		ID:          event.Id,
		Title:       event.Summary,
		Location:    event.Location,
		Description: event.Description,
		Attendance:  attendanceOf(event),
	}

	// タイトルが空の場合は「（無題）」に設定
	if domainEvent.Title == "" {
		domainEvent.Title = "（無題）"
	}

	if event.Start == nil {
		return domain.CalendarEvent{}, domain.MalformedEventError(event.Id, "開始時刻が設定されていません")
	}
	if event.End == nil {
		return domain.CalendarEvent{}, domain.MalformedEventError(event.Id, "終了時刻が設定されていません")
	}

	domainEvent.TimeZone = event.Start.TimeZone
	loc := domain.Location(event.Start.TimeZone, r.timezone)

	// 開始時刻の処理
	if event.Start.DateTime != "" {
		// 時刻指定ありのイベント
		startTime, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("%w: 開始時刻の解析に失敗しました: %v", domain.ErrMalformedEvent, err)
		}
		domainEvent.StartTime = startTime.In(loc)
		domainEvent.IsAllDay = false
	} else if event.Start.Date != "" {
		// 終日イベント
		startTime, err := time.ParseInLocation("2006-01-02", event.Start.Date, loc)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("%w: 開始日の解析に失敗しました: %v", domain.ErrMalformedEvent, err)
		}
		domainEvent.StartTime = startTime
		domainEvent.IsAllDay = true
	} else {
		return domain.CalendarEvent{}, domain.MalformedEventError(event.Id, "開始時刻が設定されていません")
	}

	// 終了時刻の処理(終日イベントでも明示的な終了時刻があればそちらを使う)
	if event.End.DateTime != "" {
		endTime, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("%w: 終了時刻の解析に失敗しました: %v", domain.ErrMalformedEvent, err)
		}
		domainEvent.EndTime = endTime.In(loc)
	} else if event.End.Date != "" {
		endTime, err := time.ParseInLocation("2006-01-02", event.End.Date, loc)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("%w: 終了日の解析に失敗しました: %v", domain.ErrMalformedEvent, err)
		}
		domainEvent.EndTime = endTime
	} else {
		return domain.CalendarEvent{}, domain.MalformedEventError(event.Id, "終了時刻が設定されていません")
	}

	return domainEvent, nil
}

// attendanceOf 主催者・出席者情報から自分の出席状況を求める
func attendanceOf(event *calendar.Event) domain.AttendanceStatus {
	if event.Organizer != nil && event.Organizer.Self {
		return domain.AttendanceOrganizer
	}
	for _, attendee := range event.Attendees {
		if attendee != nil && attendee.Self {
			return domain.ParseResponseStatus(attendee.ResponseStatus)
		}
	}
	// 主催者情報も出席者もないイベントは自分のカレンダー上の予定とみなす
	if event.Organizer == nil && len(event.Attendees) == 0 {
		return domain.AttendanceOrganizer
	}
	return domain.AttendanceNotAttending
}

// collaboratorError API呼び出しの失敗を ErrCollaboratorUnavailable としてラップ
func collaboratorError(message string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: %s (認証エラー Status: %d): %v", domain.ErrCollaboratorUnavailable, message, apiErr.Code, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrCollaboratorUnavailable, message, err)
}
