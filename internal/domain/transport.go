package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransportMode 移動手段
type TransportMode string

const (
	TransportDriving   TransportMode = "driving"
	TransportWalking   TransportMode = "walking"
	TransportBicycling TransportMode = "bicycling"
	TransportTransit   TransportMode = "transit"
)

// DefaultTransportPriority 所要時間を問い合わせる既定の順序
var DefaultTransportPriority = []TransportMode{
	TransportDriving,
	TransportWalking,
	TransportBicycling,
	TransportTransit,
}

// ParseTransportMode 文字列を移動手段に変換
func ParseTransportMode(s string) (TransportMode, error) {
	switch mode := TransportMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case TransportDriving, TransportWalking, TransportBicycling, TransportTransit:
		return mode, nil
	default:
		return "", fmt.Errorf("未知の移動手段です: %q", s)
	}
}

// Label 説明文に表示する名前 (例: "Driving")
func (m TransportMode) Label() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// TransportResult 移動手段ごとの所要時間の問い合わせ結果
type TransportResult struct {
	Mode      TransportMode
	Duration  time.Duration
	Found     bool
	Preferred bool
}
