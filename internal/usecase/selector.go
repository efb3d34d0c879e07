package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// Selection 移動手段ごとの結果と、採用する所要時間
type Selection struct {
	Results  []domain.TransportResult
	Summary  string
	Duration time.Duration
	// Lines 説明文に載せる移動手段の行(優先順、[x]/[ ] 付き)
	Lines []string
}

// DurationSelector 複数の移動手段で所要時間を問い合わせ、優先手段の所要時間を選ぶ
type DurationSelector struct {
	oracle    TravelDurationOracle
	modes     []domain.TransportMode
	preferred domain.TransportMode
	ceiling   time.Duration
	labels    map[domain.TransportMode]string
	logger    *slog.Logger
}

// NewDurationSelector セレクタを作成
func NewDurationSelector(oracle TravelDurationOracle, opts SyncOptions, logger *slog.Logger) *DurationSelector {
	opts = opts.normalized()
	if logger == nil {
		logger = discardLogger()
	}
	return &DurationSelector{
		oracle:    oracle,
		modes:     opts.TransportPriority,
		preferred: opts.PreferredTransport,
		ceiling:   opts.MaxBufferDuration,
		labels:    opts.TransportLabels,
		logger:    logger,
	}
}

// Select origin から destination へ arrival に到着するための所要時間を選ぶ
//
// 優先手段の所要時間がない、または上限を超える場合は ErrNoViableRoute を返す。
// ErrCollaboratorUnavailable をラップしたエラーはそのまま返す。それ以外の
// 問い合わせ失敗はその手段の所要時間が不明として扱うが、全手段が失敗した
// 場合はオラクルに到達できないとみなす。
func (s *DurationSelector) Select(ctx context.Context, origin, destination string, arrival time.Time) (Selection, error) {
	selection := Selection{Results: make([]domain.TransportResult, 0, len(s.modes))}
	var failures []error

	for _, mode := range s.modes {
		result := domain.TransportResult{Mode: mode, Preferred: mode == s.preferred}

		d, found, err := s.oracle.Duration(ctx, origin, destination, mode, arrival)
		switch {
		case errors.Is(err, domain.ErrCollaboratorUnavailable):
			return Selection{}, err
		case err != nil && ctx.Err() != nil:
			return Selection{}, ctx.Err()
		case err != nil:
			s.logger.Warn("所要時間の取得に失敗しました", "mode", mode, "origin", origin, "destination", destination, "error", err)
			failures = append(failures, err)
		case found && d > 0:
			result.Duration = d
			result.Found = true
		}

		selection.Results = append(selection.Results, result)
	}

	if len(failures) > 0 && len(failures) == len(s.modes) {
		return Selection{}, fmt.Errorf("%w: 全ての移動手段で所要時間の取得に失敗しました: %w",
			domain.ErrCollaboratorUnavailable, errors.Join(failures...))
	}

	for _, result := range selection.Results {
		if !result.Found || result.Duration > s.ceiling {
			continue
		}
		line := modeLine(s.labels, result.Mode, result.Duration)
		if result.Preferred {
			selection.Summary = line
			selection.Duration = result.Duration
			line = checkedMarker + line
		} else {
			line = uncheckedMarker + line
		}
		selection.Lines = append(selection.Lines, line)
	}

	preferred, ok := s.preferredResult(selection.Results)
	if !ok || !preferred.Found {
		return Selection{}, fmt.Errorf("%w: %s の所要時間が取得できません", domain.ErrNoViableRoute, s.preferred)
	}
	if preferred.Duration > s.ceiling {
		return Selection{}, fmt.Errorf("%w: %s の所要時間 %s が上限 %s を超えています",
			domain.ErrNoViableRoute, s.preferred, preferred.Duration, s.ceiling)
	}

	return selection, nil
}

func (s *DurationSelector) preferredResult(results []domain.TransportResult) (domain.TransportResult, bool) {
	for _, result := range results {
		if result.Preferred {
			return result, true
		}
	}
	return domain.TransportResult{}, false
}
