package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

// travelModes 移動手段とDistance Matrix APIのmodeの対応
var travelModes = map[domain.TransportMode]maps.Mode{
	domain.TransportDriving:   maps.TravelModeDriving,
	domain.TransportWalking:   maps.TravelModeWalking,
	domain.TransportBicycling: maps.TravelModeBicycling,
	domain.TransportTransit:   maps.TravelModeTransit,
}

// DistanceMatrixOracle Google Maps Distance Matrix APIを使用したTravelDurationOracleの実装
type DistanceMatrixOracle struct {
	client *maps.Client
}

// NewDistanceMatrixOracle Distance Matrixクライアントを作成
func NewDistanceMatrixOracle(apiKey string, opts ...maps.ClientOption) (*DistanceMatrixOracle, error) {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: statusCheckTransport{next: http.DefaultTransport},
	}
	options := append([]maps.ClientOption{maps.WithAPIKey(apiKey), maps.WithHTTPClient(httpClient)}, opts...)

	client, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("Maps クライアントの作成に失敗しました: %w", err)
	}
	return &DistanceMatrixOracle{client: client}, nil
}

// Duration arrival に到着する場合の origin から destination までの所要時間を取得
//
// 経路が見つからない場合は found=false を返す。APIキーの拒否、サーバーエラー、
// 通信失敗は ErrCollaboratorUnavailable をラップしたエラーを返す。
func (o *DistanceMatrixOracle) Duration(ctx context.Context, origin, destination string, mode domain.TransportMode, arrival time.Time) (time.Duration, bool, error) {
	travelMode, ok := travelModes[mode]
	if !ok {
		return 0, false, fmt.Errorf("未知の移動手段です: %s", mode)
	}

	req := &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: []string{destination},
		Mode:         travelMode,
	}
	// 到着時刻を指定できるのは公共交通機関のみ
	if travelMode == maps.TravelModeTransit {
		req.ArrivalTime = strconv.FormatInt(arrival.Unix(), 10)
	}

	resp, err := o.client.DistanceMatrix(ctx, req)
	if err != nil {
		return classifyDistanceMatrixError(ctx, err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, false, nil
	}
	element := resp.Rows[0].Elements[0]
	if element == nil || element.Status != "OK" || element.Duration <= 0 {
		// NOT_FOUND / ZERO_RESULTS は経路なしとして扱う
		return 0, false, nil
	}

	return element.Duration, true, nil
}

// classifyDistanceMatrixError クライアントのエラーを経路なし・利用不可・手段ごとの失敗に振り分ける
func classifyDistanceMatrixError(ctx context.Context, err error) (time.Duration, bool, error) {
	if ctx.Err() != nil {
		return 0, false, ctx.Err()
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.unavailable() {
			return 0, false, fmt.Errorf("%w: Distance Matrix API呼び出しが失敗しました (Status: %d)", domain.ErrCollaboratorUnavailable, statusErr.code)
		}
		return 0, false, fmt.Errorf("Distance Matrix API呼び出しが失敗しました (Status: %d)", statusErr.code)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return 0, false, fmt.Errorf("%w: Distance Matrix APIリクエストの送信に失敗しました: %v", domain.ErrCollaboratorUnavailable, err)
	}

	// レスポンスのstatusは "maps: <STATUS> - <message>" の形式でエラーになる
	message := err.Error()
	switch {
	case strings.Contains(message, "REQUEST_DENIED"):
		return 0, false, fmt.Errorf("%w: Distance Matrix APIがリクエストを拒否しました: %v", domain.ErrCollaboratorUnavailable, err)
	case strings.Contains(message, "ZERO_RESULTS"), strings.Contains(message, "NOT_FOUND"):
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("Distance Matrix API呼び出しが失敗しました: %w", err)
}

// httpStatusError 200以外のHTTPステータス
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.code)
}

// unavailable 認証エラーとサーバーエラーは実行を継続しても回復しない
func (e *httpStatusError) unavailable() bool {
	return e.code == http.StatusUnauthorized || e.code == http.StatusForbidden || e.code >= http.StatusInternalServerError
}

// statusCheckTransport 200以外のレスポンスをエラーにする
//
// maps クライアントはステータスコードを見ずにボディをデコードするため、ここで判定する。
type statusCheckTransport struct {
	next http.RoundTripper
}

func (t statusCheckTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &httpStatusError{code: resp.StatusCode}
	}
	return resp, nil
}
