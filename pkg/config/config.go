package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

type Config struct {
	Database    DatabaseConfig    `json:"database"`
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Learning    LearningConfig    `json:"learning"`
	Translation TranslationConfig `json:"translation"`
	TTS         TTSConfig         `json:"tts"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Path     string `json:"path"`
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type TelegramConfig struct {
	Token          string  `json:"token"`
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
	// SlowQueryMS is the duration after which a query is logged as slow.
	SlowQueryMS int `json:"slow_query_ms"`
}

type LearningConfig struct {
	CutoffHours     int `json:"cutoff_hours"`
	SessionTTLHours int `json:"session_ttl_hours"`
}

type TranslationConfig struct {
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
	FallbackURL    string `json:"fallback_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type TTSConfig struct {
	Enabled      bool    `json:"enabled"`
	LanguageCode string  `json:"language_code"`
	VoiceName    string  `json:"voice_name"`
	SpeakingRate float64 `json:"speaking_rate"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultDatabasePath = "phrasebook.db"
)

var AppConfig = Defaults()

func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  DriverSQLite,
			Path:    DefaultDatabasePath,
			Port:    5432,
			SSLMode: "disable",
		},
		Learning: LearningConfig{
			CutoffHours:     24,
			SessionTTLHours: 24,
		},
		Translation: TranslationConfig{
			SourceLang:     "en",
			TargetLang:     "es",
			TimeoutSeconds: 10,
		},
		TTS: TTSConfig{
			LanguageCode: "es-ES",
			SpeakingRate: 0.8,
		},
	}
}

// LoadConfig decodes filename on top of the defaults. Keys missing from the
// file keep their default values.
func LoadConfig(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	cfg := Defaults()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}
	cfg.fillDefaults()
	AppConfig = cfg

	return nil
}

// ApplyEnv loads the optional .env files and lets PHRASEBOOK_* variables
// override the loaded configuration.
func ApplyEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load env file", "error", err)
		return err
	}

	setString(&AppConfig.Telegram.Token, "PHRASEBOOK_TELEGRAM_TOKEN")
	setString(&AppConfig.Database.Driver, "PHRASEBOOK_DB_DRIVER")
	setString(&AppConfig.Database.Path, "PHRASEBOOK_DB_PATH")
	setString(&AppConfig.Database.Host, "PHRASEBOOK_DB_HOST")
	setString(&AppConfig.Database.User, "PHRASEBOOK_DB_USER")
	setString(&AppConfig.Database.Password, "PHRASEBOOK_DB_PASSWORD")
	setString(&AppConfig.Database.DBName, "PHRASEBOOK_DB_NAME")
	setString(&AppConfig.Logging.Level, "PHRASEBOOK_LOG_LEVEL")
	setString(&AppConfig.Translation.FallbackURL, "PHRASEBOOK_TRANSLATE_URL")
	setString(&AppConfig.Translation.APIKey, "PHRASEBOOK_TRANSLATE_API_KEY")

	if value := strings.TrimSpace(os.Getenv("PHRASEBOOK_DB_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			logger.Error("invalid PHRASEBOOK_DB_PORT", "value", value, "error", err)
			return err
		}
		AppConfig.Database.Port = port
	}
	if value := strings.TrimSpace(os.Getenv("PHRASEBOOK_ALLOWED_USER_IDS")); value != "" {
		ids, err := parseUserIDs(value)
		if err != nil {
			logger.Error("invalid PHRASEBOOK_ALLOWED_USER_IDS", "value", value, "error", err)
			return err
		}
		AppConfig.Telegram.AllowedUserIDs = ids
	}

	AppConfig.fillDefaults()
	return nil
}

func setString(dst *string, key string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func parseUserIDs(value string) ([]int64, error) {
	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) fillDefaults() {
	defaults := Defaults()
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = defaults.Database.Driver
	}
	if c.Database.Driver == DriverSQLite && strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaults.Database.Path
	}
	if c.Learning.CutoffHours <= 0 {
		c.Learning.CutoffHours = defaults.Learning.CutoffHours
	}
	if c.Learning.SessionTTLHours <= 0 {
		c.Learning.SessionTTLHours = defaults.Learning.SessionTTLHours
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaults.Translation.TimeoutSeconds
	}
	if c.TTS.SpeakingRate <= 0 {
		c.TTS.SpeakingRate = defaults.TTS.SpeakingRate
	}
}

// IsAllowedUser reports whether userID may use the bot. An empty allow list
// admits everyone.
func (t TelegramConfig) IsAllowedUser(userID int64) bool {
	if len(t.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range t.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
