package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
	"github.com/k-negishi/calendar-buffer-time/internal/usecase"
)

type durationKey struct {
	origin      string
	destination string
	mode        domain.TransportMode
	// arrivalHour 公共交通機関のみ到着時刻(時単位)で区別する
	arrivalHour int64
}

type durationEntry struct {
	duration time.Duration
	found    bool
}

// CachingOracle 同じ出発地・目的地・移動手段の問い合わせ結果を1回の実行中だけ再利用する
//
// 車・徒歩・自転車は到着時刻をキーに含めない。公共交通機関は時刻表に左右される
// ため到着時刻を1時間単位で区別する。経路なしの結果もキャッシュし、エラーは
// キャッシュしない。
type CachingOracle struct {
	next usecase.TravelDurationOracle

	mu      sync.Mutex
	entries map[durationKey]durationEntry
}

// NewCachingOracle キャッシュ付きのオラクルを作成
func NewCachingOracle(next usecase.TravelDurationOracle) *CachingOracle {
	return &CachingOracle{
		next:    next,
		entries: make(map[durationKey]durationEntry),
	}
}

// Duration キャッシュがあればそれを返し、なければ next に問い合わせる
func (c *CachingOracle) Duration(ctx context.Context, origin, destination string, mode domain.TransportMode, arrival time.Time) (time.Duration, bool, error) {
	key := durationKey{origin: origin, destination: destination, mode: mode}
	if mode == domain.TransportTransit {
		key.arrivalHour = arrival.Truncate(time.Hour).Unix()
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return entry.duration, entry.found, nil
	}

	d, found, err := c.next.Duration(ctx, origin, destination, mode, arrival)
	if err != nil {
		return 0, false, err
	}

	c.mu.Lock()
	c.entries[key] = durationEntry{duration: d, found: found}
	c.mu.Unlock()

	return d, found, nil
}
