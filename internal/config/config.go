package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
	"github.com/k-negishi/calendar-buffer-time/internal/usecase"
)

// SSMParameterGetter Parameter Storeからパラメータを取得するクライアント
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// Google Calendar / Google Maps 設定
	GoogleCredentials string
	MapsAPIKey        string

	// LINE API設定(任意。未設定の場合は通知しない)
	LineChannelAccessToken string
	LineUserID             string

	// 位置推定の設定
	HomeAddress string
	WorkAddress string
	WorkHours   usecase.WorkHours

	// 同期対象
	WatchedCalendars   []string
	BufferCalendarName string
	MergeCalendars     bool

	StaleLocationThreshold time.Duration
	MaxBufferDuration      time.Duration
	Lookback               time.Duration
	ScanHorizon            time.Duration

	PreferredTransport domain.TransportMode
	TransportPriority  []domain.TransportMode
	TransportLabels    map[domain.TransportMode]string

	// その他設定
	LogLevel  string
	LogFormat string
	Timezone  string
	Location  *time.Location
	Schedule  string

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
}

// Load 環境に応じて設定を読み込み
func Load() (*Config, error) {
	// AWS Lambda環境かどうか判定
	if IsLambda() {
		return loadAWSConfig()
	}
	return loadLocalConfig()
}

// IsLambda AWS Lambda上で実行されているかどうか
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		// .envファイルが存在しない場合はエラーにしない
		fmt.Printf("Warning: .envファイルが見つかりません: %v\n", err)
	}

	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	cfg.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS", "")
	cfg.MapsAPIKey = getEnvOrDefault("MAPS_API_KEY", "")
	cfg.LineChannelAccessToken = getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", "")
	cfg.LineUserID = getEnvOrDefault("LINE_USER_ID", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig() (*Config, error) {
	ctx := context.TODO()

	// AWS設定を初期化
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %v", err)
	}

	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)
	// Lambda上では CloudWatch Logs で扱いやすい JSON を既定にする
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "json"
	}

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %v", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	// Google認証情報を取得
	googleCredsParam := getEnvOrDefault("GOOGLE_CREDS_PARAM", "/calendar-buffer-time/google-creds")
	googleCreds, err := c.getParameter(ctx, googleCredsParam, true)
	if err != nil {
		return fmt.Errorf("Google認証情報の取得に失敗しました: %v", err)
	}
	c.GoogleCredentials = googleCreds

	// Google Maps APIキーを取得
	mapsKeyParam := getEnvOrDefault("MAPS_API_KEY_PARAM", "/calendar-buffer-time/maps-api-key")
	mapsKey, err := c.getParameter(ctx, mapsKeyParam, true)
	if err != nil {
		return fmt.Errorf("Google Maps APIキーの取得に失敗しました: %v", err)
	}
	c.MapsAPIKey = mapsKey

	// LINE通知は任意なのでパラメータ名が指定された場合のみ取得
	if lineTokenParam := getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN_PARAM", ""); lineTokenParam != "" {
		lineToken, err := c.getParameter(ctx, lineTokenParam, true)
		if err != nil {
			return fmt.Errorf("LINE Channel Access Tokenの取得に失敗しました: %v", err)
		}
		c.LineChannelAccessToken = lineToken
	}
	if lineUserParam := getEnvOrDefault("LINE_USER_ID_PARAM", ""); lineUserParam != "" {
		lineUser, err := c.getParameter(ctx, lineUserParam, true)
		if err != nil {
			return fmt.Errorf("LINE User IDの取得に失敗しました: %v", err)
		}
		c.LineUserID = lineUser
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %v", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// validate 必須設定項目の確認
func (c *Config) validate() error {
	if c.GoogleCredentials == "" {
		return fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません")
	}
	if c.MapsAPIKey == "" {
		return fmt.Errorf("MAPS_API_KEY環境変数が設定されていません")
	}
	if c.HomeAddress == "" {
		return fmt.Errorf("HOME_ADDRESS環境変数が設定されていません")
	}
	if len(c.WatchedCalendars) == 0 {
		return fmt.Errorf("WATCHED_CALENDARS環境変数が設定されていません")
	}
	return nil
}

// LINEEnabled LINE通知の設定がそろっているか
func (c *Config) LINEEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// SyncOptions 同期処理に渡す不変の設定値を作成
func (c *Config) SyncOptions() usecase.SyncOptions {
	return usecase.SyncOptions{
		HomeAddress:            c.HomeAddress,
		WorkAddress:            c.WorkAddress,
		WorkHours:              c.WorkHours,
		WatchedCalendars:       c.WatchedCalendars,
		BufferCalendarName:     c.BufferCalendarName,
		StaleLocationThreshold: c.StaleLocationThreshold,
		MaxBufferDuration:      c.MaxBufferDuration,
		Lookback:               c.Lookback,
		ScanHorizon:            c.ScanHorizon,
		PreferredTransport:     c.PreferredTransport,
		TransportPriority:      c.TransportPriority,
		TransportLabels:        c.TransportLabels,
		Location:               c.Location,
	}
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
