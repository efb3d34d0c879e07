package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
)

const (
	descriptionHeader = "Commute time"
	checkedMarker     = "[x] "
	uncheckedMarker   = "[ ] "
)

// FormatDuration 所要時間を "1 hour 25 minutes" の形式に変換(分単位で切り上げ)
func FormatDuration(d time.Duration) string {
	totalMinutes := int((d + time.Minute - 1) / time.Minute)
	hours, minutes := totalMinutes/60, totalMinutes%60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 || hours == 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// modeLine "🚗 Driving 25 minutes" の形式の1行
func modeLine(labels map[domain.TransportMode]string, mode domain.TransportMode, d time.Duration) string {
	line := mode.Label() + " " + FormatDuration(d)
	if label := labels[mode]; label != "" {
		line = label + " " + line
	}
	return line
}

// buildDescription バッファイベントの説明文を構築
//
// 相関行は常に最終行になる。
func buildDescription(origin, destination string, lines []string, sourceEventID string) string {
	var builder strings.Builder

	builder.WriteString(descriptionHeader + "\n")
	builder.WriteString(fmt.Sprintf("From: %s\n", origin))
	builder.WriteString(fmt.Sprintf("To: %s\n", destination))
	for _, line := range lines {
		builder.WriteString(line + "\n")
	}
	builder.WriteString(domain.CorrelationLine(sourceEventID))

	return builder.String()
}
