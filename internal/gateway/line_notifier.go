package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/calendar-buffer-time/internal/usecase"
)

// LINENotifier LINE Messaging APIを使用したRunReporterの実装
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken, userID string) *LINENotifier {
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
	}
}

// ReportSync 作成したバッファイベントをLINEで通知
func (n *LINENotifier) ReportSync(ctx context.Context, report usecase.SyncReport) error {
	return n.sendPushMessage(ctx, buildReportMessage(report))
}

// buildReportMessage 同期結果の通知メッセージを構築
func buildReportMessage(report usecase.SyncReport) string {
	var messageBuilder strings.Builder

	messageBuilder.WriteString("Buffer time 同期結果\n\n")
	messageBuilder.WriteString(fmt.Sprintf("バッファイベントを%d件作成しました:\n", len(report.Created)))

	for _, decision := range report.Created {
		appendDecisionToMessage(&messageBuilder, decision)
	}

	return messageBuilder.String()
}

// appendDecisionToMessage 作成したバッファイベントをメッセージに追加
func appendDecisionToMessage(builder *strings.Builder, decision usecase.Decision) {
	buffer := decision.Buffer
	day := fmt.Sprintf("%s(%s)", buffer.StartTime.Format("1/2"), getWeekdayJapanese(buffer.StartTime.Weekday()))
	timeRange := fmt.Sprintf("%s〜%s", buffer.StartTime.Format("15:04"), buffer.EndTime.Format("15:04"))

	builder.WriteString(fmt.Sprintf("🔸 %s %s %s\n", day, timeRange, buffer.Title))
	builder.WriteString(fmt.Sprintf("   📍 %s → %s\n", decision.Origin, decision.Source.Location))
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	// リクエストボディを作成
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %v", err)
	}

	// HTTPリクエストを作成
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.endpoint,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %v", err)
	}

	// ヘッダーを設定
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", n.channelAccessToken))

	// APIリクエストを送信
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %v", err)
	}
	defer resp.Body.Close()

	// レスポンスを確認
	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

// getWeekdayJapanese 曜日を日本語に変換
func getWeekdayJapanese(weekday time.Weekday) string {
	weekdays := map[time.Weekday]string{
		time.Sunday:    "日",
		time.Monday:    "月",
		time.Tuesday:   "火",
		time.Wednesday: "水",
		time.Thursday:  "木",
		time.Friday:    "金",
		time.Saturday:  "土",
	}
	return weekdays[weekday]
}
