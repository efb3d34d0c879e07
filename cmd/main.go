package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/robfig/cron/v3"

	"github.com/k-negishi/calendar-buffer-time/internal/config"
	"github.com/k-negishi/calendar-buffer-time/internal/gateway"
	"github.com/k-negishi/calendar-buffer-time/internal/logger"
	"github.com/k-negishi/calendar-buffer-time/internal/usecase"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// EventBridge Schedulerからの実行なので特に使用しない
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Created    int    `json:"created"`
}

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load()
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "設定読み込みエラー",
		}, err
	}
	appLog := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	synchronizer, err := newSynchronizer(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("初期化に失敗しました", "error", err)
		return LambdaResponse{
			StatusCode: 500,
			Message:    "初期化エラー",
		}, err
	}

	report, err := synchronizer.Run(ctx)
	if err != nil {
		appLog.Error("同期に失敗しました", "run_id", report.RunID, "error", err)
		return LambdaResponse{
			StatusCode: 500,
			Message:    "同期エラー",
			Created:    len(report.Created),
		}, err
	}

	if len(report.Created) == 0 {
		return LambdaResponse{
			StatusCode: 200,
			Message:    "作成するバッファイベントなし",
		}, nil
	}
	return LambdaResponse{
		StatusCode: 200,
		Message:    "同期完了",
		Created:    len(report.Created),
	}, nil
}

// newSynchronizer 設定から同期処理を組み立てる
func newSynchronizer(ctx context.Context, cfg *config.Config, appLog *slog.Logger) (*usecase.BufferSynchronizer, error) {
	repo, err := gateway.NewGoogleCalendarRepository(ctx, []byte(cfg.GoogleCredentials), cfg.Location, appLog)
	if err != nil {
		return nil, fmt.Errorf("Google Calendar初期化に失敗しました: %w", err)
	}

	// 同じ区間の問い合わせは1回の実行中キャッシュする
	distanceMatrix, err := gateway.NewDistanceMatrixOracle(cfg.MapsAPIKey)
	if err != nil {
		return nil, err
	}
	oracle := gateway.NewCachingOracle(distanceMatrix)

	var source usecase.EventSource = usecase.NewPerCalendarSource(repo)
	if cfg.MergeCalendars {
		source = usecase.NewMergedSource(repo)
	}

	synchronizer := usecase.NewBufferSynchronizer(repo, source, oracle, cfg.SyncOptions(), appLog)
	if cfg.LINEEnabled() {
		synchronizer.SetReporter(gateway.NewLINENotifier(cfg.LineChannelAccessToken, cfg.LineUserID))
	}
	return synchronizer, nil
}

// runLocal ローカル実行。SCHEDULE が設定されていれば cron で繰り返し実行する
func runLocal() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appLog := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	// SIGINT/SIGTERM でキャンセルされるルートコンテキスト
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("シグナルを受信したため終了します", "signal", sig.String())
		cancel()
	}()

	// 移動時間のキャッシュを実行ごとに作り直すため、毎回組み立てる
	runOnce := func() error {
		synchronizer, err := newSynchronizer(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		_, err = synchronizer.Run(ctx)
		return err
	}

	if cfg.Schedule == "" {
		return runOnce()
	}

	scheduler := cron.New(cron.WithLocation(cfg.Location))
	_, err = scheduler.AddFunc(cfg.Schedule, func() {
		if err := runOnce(); err != nil {
			appLog.Error("同期に失敗しました", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("SCHEDULE の解析に失敗しました: %w", err)
	}

	appLog.Info("定期実行を開始します", "schedule", cfg.Schedule, "timezone", cfg.Timezone)
	scheduler.Start()
	<-ctx.Done()
	// 実行中のジョブの終了を待つ
	<-scheduler.Stop().Done()
	appLog.Info("定期実行を終了しました")
	return nil
}

func main() {
	if config.IsLambda() {
		lambda.Start(handler)
		return
	}

	if err := runLocal(); err != nil {
		log.Fatalf("実行に失敗しました: %v", err)
	}
}
