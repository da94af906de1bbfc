package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Media      MediaConfig
	Whisper    WhisperConfig
	Translator TranslatorConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Path string
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	SubmitPerHour int
}

type MediaConfig struct {
	AudioDir    string
	YtdlpBinary string
}

type WhisperConfig struct {
	ServiceURL string
	Model      string
	Language   string
	Timeout    int // seconds
}

type TranslatorConfig struct {
	ServiceURL string
	SourceLang string
	TargetLang string
	Timeout    int // seconds
}

type PipelineConfig struct {
	TranscriptionWorkers int
	TranslationWorkers   int
	DequeueTimeout       int // seconds
	StageTimeout         int // seconds
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ratelimit.submit_per_hour", "RATELIMIT_SUBMIT_PER_HOUR")
	_ = viper.BindEnv("media.audio_dir", "AUDIO_DIR")
	_ = viper.BindEnv("media.ytdlp_binary", "YTDLP_BINARY")
	_ = viper.BindEnv("whisper.service_url", "WHISPER_SERVICE_URL")
	_ = viper.BindEnv("whisper.model", "WHISPER_MODEL")
	_ = viper.BindEnv("whisper.language", "WHISPER_LANGUAGE")
	_ = viper.BindEnv("whisper.timeout", "WHISPER_TIMEOUT")
	_ = viper.BindEnv("translator.service_url", "TRANSLATOR_SERVICE_URL")
	_ = viper.BindEnv("translator.source_lang", "TRANSLATOR_SOURCE_LANG")
	_ = viper.BindEnv("translator.target_lang", "TRANSLATOR_TARGET_LANG")
	_ = viper.BindEnv("translator.timeout", "TRANSLATOR_TIMEOUT")
	_ = viper.BindEnv("pipeline.transcription_workers", "TRANSCRIPTION_WORKERS")
	_ = viper.BindEnv("pipeline.translation_workers", "TRANSLATION_WORKERS")
	_ = viper.BindEnv("pipeline.dequeue_timeout", "DEQUEUE_TIMEOUT")
	_ = viper.BindEnv("pipeline.stage_timeout", "STAGE_TIMEOUT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.path", "./heysprech.db")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.submit_per_hour", 20)
	viper.SetDefault("media.audio_dir", "./audios")
	viper.SetDefault("media.ytdlp_binary", "yt-dlp")

	// Whisper defaults
	viper.SetDefault("whisper.service_url", "http://localhost:8081")
	viper.SetDefault("whisper.model", "base")
	viper.SetDefault("whisper.language", "de")
	viper.SetDefault("whisper.timeout", 600)

	// Translator defaults (MarianMT opus-mt-de-fr service)
	viper.SetDefault("translator.service_url", "http://localhost:8082")
	viper.SetDefault("translator.source_lang", "de")
	viper.SetDefault("translator.target_lang", "fr")
	viper.SetDefault("translator.timeout", 120)

	// Pipeline defaults
	viper.SetDefault("pipeline.transcription_workers", 2)
	viper.SetDefault("pipeline.translation_workers", 1)
	viper.SetDefault("pipeline.dequeue_timeout", 5)
	viper.SetDefault("pipeline.stage_timeout", 900)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
		},
		Media: MediaConfig{
			AudioDir:    viper.GetString("media.audio_dir"),
			YtdlpBinary: viper.GetString("media.ytdlp_binary"),
		},
		Whisper: WhisperConfig{
			ServiceURL: viper.GetString("whisper.service_url"),
			Model:      viper.GetString("whisper.model"),
			Language:   viper.GetString("whisper.language"),
			Timeout:    viper.GetInt("whisper.timeout"),
		},
		Translator: TranslatorConfig{
			ServiceURL: viper.GetString("translator.service_url"),
			SourceLang: viper.GetString("translator.source_lang"),
			TargetLang: viper.GetString("translator.target_lang"),
			Timeout:    viper.GetInt("translator.timeout"),
		},
		Pipeline: PipelineConfig{
			TranscriptionWorkers: viper.GetInt("pipeline.transcription_workers"),
			TranslationWorkers:   viper.GetInt("pipeline.translation_workers"),
			DequeueTimeout:       viper.GetInt("pipeline.dequeue_timeout"),
			StageTimeout:         viper.GetInt("pipeline.stage_timeout"),
		},
	}

	return cfg, nil
}
