package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/k-negishi/calendar-buffer-time/internal/domain"
	"github.com/k-negishi/calendar-buffer-time/internal/usecase"
)

// fileSettings 設定ファイル(YAML / TOML)の内容
//
// 機密情報はファイルに置かず、環境変数またはParameter Storeから読み込む。
type fileSettings struct {
	HomeAddress            string            `yaml:"home_address" toml:"home_address"`
	WorkAddress            string            `yaml:"work_address" toml:"work_address"`
	WorkHours              string            `yaml:"work_hours" toml:"work_hours"`
	WatchedCalendars       []string          `yaml:"watched_calendars" toml:"watched_calendars"`
	BufferCalendarName     string            `yaml:"buffer_calendar_name" toml:"buffer_calendar_name"`
	MergeCalendars         bool              `yaml:"merge_calendars" toml:"merge_calendars"`
	StaleLocationThreshold string            `yaml:"stale_location_threshold" toml:"stale_location_threshold"`
	MaxBufferDuration      string            `yaml:"max_buffer_duration" toml:"max_buffer_duration"`
	Lookback               string            `yaml:"lookback" toml:"lookback"`
	ScanHorizon            string            `yaml:"scan_horizon" toml:"scan_horizon"`
	PreferredTransport     string            `yaml:"preferred_transport" toml:"preferred_transport"`
	TransportPriority      []string          `yaml:"transport_priority" toml:"transport_priority"`
	TransportLabels        map[string]string `yaml:"transport_labels" toml:"transport_labels"`
	LogLevel               string            `yaml:"log_level" toml:"log_level"`
	LogFormat              string            `yaml:"log_format" toml:"log_format"`
	Timezone               string            `yaml:"timezone" toml:"timezone"`
	Schedule               string            `yaml:"schedule" toml:"schedule"`
}

// loadSettings 設定ファイルを読み込み、環境変数で上書きして Config を作成
func loadSettings() (*Config, error) {
	settings, err := readSettingsFile(getEnvOrDefault("SETTINGS_FILE", ""))
	if err != nil {
		return nil, err
	}
	settings.applyEnvOverrides()
	return settings.toConfig()
}

// readSettingsFile 拡張子に応じて設定ファイルを解析(パスが空なら空の設定)
func readSettingsFile(path string) (fileSettings, error) {
	var settings fileSettings
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %v", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &settings); err != nil {
			return settings, fmt.Errorf("設定ファイル %s のTOML解析に失敗しました: %v", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("設定ファイル %s のYAML解析に失敗しました: %v", path, err)
		}
	default:
		return settings, fmt.Errorf("設定ファイル %s の形式に対応していません (.yaml / .yml / .toml)", path)
	}

	return settings, nil
}

// applyEnvOverrides 環境変数が設定されている項目を上書き
func (s *fileSettings) applyEnvOverrides() {
	s.HomeAddress = getEnvOrDefault("HOME_ADDRESS", s.HomeAddress)
	s.WorkAddress = getEnvOrDefault("WORK_ADDRESS", s.WorkAddress)
	s.WorkHours = getEnvOrDefault("WORK_HOURS", s.WorkHours)
	if v := getEnvOrDefault("WATCHED_CALENDARS", ""); v != "" {
		s.WatchedCalendars = splitList(v)
	}
	s.BufferCalendarName = getEnvOrDefault("BUFFER_CALENDAR_NAME", s.BufferCalendarName)
	if v, err := strconv.ParseBool(getEnvOrDefault("MERGE_CALENDARS", "")); err == nil {
		s.MergeCalendars = v
	}
	s.StaleLocationThreshold = getEnvOrDefault("STALE_LOCATION_THRESHOLD", s.StaleLocationThreshold)
	s.MaxBufferDuration = getEnvOrDefault("MAX_BUFFER_DURATION", s.MaxBufferDuration)
	s.Lookback = getEnvOrDefault("LOOKBACK", s.Lookback)
	s.ScanHorizon = getEnvOrDefault("SCAN_HORIZON", s.ScanHorizon)
	s.PreferredTransport = getEnvOrDefault("PREFERRED_TRANSPORT", s.PreferredTransport)
	if v := getEnvOrDefault("TRANSPORT_PRIORITY", ""); v != "" {
		s.TransportPriority = splitList(v)
	}
	s.LogLevel = getEnvOrDefault("LOG_LEVEL", s.LogLevel)
	s.LogFormat = getEnvOrDefault("LOG_FORMAT", s.LogFormat)
	s.Timezone = getEnvOrDefault("TIMEZONE", s.Timezone)
	s.Schedule = getEnvOrDefault("SCHEDULE", s.Schedule)
}

// toConfig 文字列の設定値を解析して Config に変換
func (s fileSettings) toConfig() (*Config, error) {
	cfg := &Config{
		HomeAddress:        s.HomeAddress,
		WorkAddress:        s.WorkAddress,
		WatchedCalendars:   s.WatchedCalendars,
		BufferCalendarName: orDefault(s.BufferCalendarName, usecase.DefaultBufferCalendarName),
		MergeCalendars:     s.MergeCalendars,
		LogLevel:           orDefault(s.LogLevel, "INFO"),
		LogFormat:          orDefault(s.LogFormat, "text"),
		Timezone:           orDefault(s.Timezone, "Asia/Tokyo"),
		Schedule:           s.Schedule,
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーン %s の読み込みに失敗しました: %v", cfg.Timezone, err)
	}
	cfg.Location = location

	durations := []struct {
		name     string
		value    string
		fallback time.Duration
		target   *time.Duration
	}{
		{"STALE_LOCATION_THRESHOLD", s.StaleLocationThreshold, usecase.DefaultStaleLocationThreshold, &cfg.StaleLocationThreshold},
		{"MAX_BUFFER_DURATION", s.MaxBufferDuration, usecase.DefaultMaxBufferDuration, &cfg.MaxBufferDuration},
		{"LOOKBACK", s.Lookback, 0, &cfg.Lookback},
		{"SCAN_HORIZON", s.ScanHorizon, 0, &cfg.ScanHorizon},
	}
	for _, d := range durations {
		if *d.target, err = parseDuration(d.name, d.value, d.fallback); err != nil {
			return nil, err
		}
	}
	// 遡り期間の既定値は位置情報の有効期間と同じ
	if cfg.Lookback == 0 {
		cfg.Lookback = cfg.StaleLocationThreshold
	}

	cfg.PreferredTransport = domain.TransportDriving
	if s.PreferredTransport != "" {
		if cfg.PreferredTransport, err = domain.ParseTransportMode(s.PreferredTransport); err != nil {
			return nil, fmt.Errorf("PREFERRED_TRANSPORT の解析に失敗しました: %v", err)
		}
	}

	for _, name := range s.TransportPriority {
		mode, err := domain.ParseTransportMode(name)
		if err != nil {
			return nil, fmt.Errorf("TRANSPORT_PRIORITY の解析に失敗しました: %v", err)
		}
		cfg.TransportPriority = append(cfg.TransportPriority, mode)
	}
	if len(cfg.TransportPriority) == 0 {
		cfg.TransportPriority = append([]domain.TransportMode(nil), domain.DefaultTransportPriority...)
	}

	if len(s.TransportLabels) > 0 {
		cfg.TransportLabels = make(map[domain.TransportMode]string, len(s.TransportLabels))
		for name, label := range s.TransportLabels {
			mode, err := domain.ParseTransportMode(name)
			if err != nil {
				return nil, fmt.Errorf("transport_labels の解析に失敗しました: %v", err)
			}
			cfg.TransportLabels[mode] = label
		}
	}

	if cfg.WorkHours, err = parseWorkHours(s.WorkHours); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseDuration "4h" などの文字列を解析(空なら fallback)
func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s の解析に失敗しました: %v", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s は正の値である必要があります: %s", name, value)
	}
	return d, nil
}

// parseWorkHours "09:00-17:00" 形式の勤務時間を解析(曜日は月〜金)
func parseWorkHours(value string) (usecase.WorkHours, error) {
	if value == "" {
		return usecase.WorkHours{}, nil
	}

	startStr, endStr, ok := strings.Cut(value, "-")
	if !ok {
		return usecase.WorkHours{}, fmt.Errorf("WORK_HOURS の形式が不正です (例: 09:00-17:00): %s", value)
	}
	start, err := parseClock(startStr)
	if err != nil {
		return usecase.WorkHours{}, fmt.Errorf("WORK_HOURS の開始時刻の解析に失敗しました: %v", err)
	}
	end, err := parseClock(endStr)
	if err != nil {
		return usecase.WorkHours{}, fmt.Errorf("WORK_HOURS の終了時刻の解析に失敗しました: %v", err)
	}
	if end <= start {
		return usecase.WorkHours{}, fmt.Errorf("WORK_HOURS の終了時刻は開始時刻より後である必要があります: %s", value)
	}

	return usecase.WorkHours{
		Start: start,
		End:   end,
		Days:  append([]time.Weekday(nil), usecase.DefaultWorkDays...),
	}, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
