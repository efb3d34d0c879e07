package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// listCall ListEvents の呼び出し記録
type listCall struct {
	calendarID string
	timeMin    time.Time
	timeMax    time.Time
}

// fakeRepository メモリ上の CalendarRepository
type fakeRepository struct {
	mu        sync.Mutex
	calendars map[string]string
	events    map[string][]domain.CalendarEvent
	created   []string
	listCalls []listCall
	nextID    int

	listErr   error
	insertErr error
}

func newFakeRepository(calendars map[string]string) *fakeRepository {
	return &fakeRepository{
		calendars: calendars,
		events:    make(map[string][]domain.CalendarEvent),
	}
}

func (f *fakeRepository) add(calendarID string, events ...domain.CalendarEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID] = append(f.events[calendarID], events...)
}

func (f *fakeRepository) ListCalendars(_ context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.calendars))
	for name, id := range f.calendars {
		out[name] = id
	}
	return out, nil
}

func (f *fakeRepository) CreateCalendar(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := name + "-id"
	f.calendars[name] = id
	f.created = append(f.created, name)
	return id, nil
}

// ListEvents [timeMin, timeMax) と重なるイベントを開始時刻順に返す
func (f *fakeRepository) ListEvents(_ context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, listCall{calendarID: calendarID, timeMin: timeMin, timeMax: timeMax})
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []domain.CalendarEvent
	for _, event := range f.events[calendarID] {
		if event.EndTime.After(timeMin) && event.StartTime.Before(timeMax) {
			out = append(out, event)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.CalendarEvent) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out, nil
}

func (f *fakeRepository) InsertEvent(_ context.Context, calendarID string, event domain.CalendarEvent) (domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return domain.CalendarEvent{}, f.insertErr
	}
	f.nextID++
	event.ID = fmt.Sprintf("buffer-%d", f.nextID)
	f.events[calendarID] = append(f.events[calendarID], event)
	return event, nil
}

func (f *fakeRepository) eventsIn(calendarID string) []domain.CalendarEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.events[calendarID])
}

// oracleFunc 関数を TravelDurationOracle として使う
type oracleFunc func(ctx context.Context, origin, destination string, mode domain.TransportMode, arrival time.Time) (time.Duration, bool, error)

func (f oracleFunc) Duration(ctx context.Context, origin, destination string, mode domain.TransportMode, arrival time.Time) (time.Duration, bool, error) {
	return f(ctx, origin, destination, mode, arrival)
}

// drivingOnly 車のみ固定時間で経路がある
func drivingOnly(d time.Duration) oracleFunc {
	return func(_ context.Context, _, _ string, mode domain.TransportMode, _ time.Time) (time.Duration, bool, error) {
		if mode != domain.TransportDriving {
			return 0, false, nil
		}
		return d, true, nil
	}
}
