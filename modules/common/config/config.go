package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Store 드라이버
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port          string `env:"PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AuthDisabled  bool   `env:"AUTH_DISABLED" envDefault:"false"`

	// Store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"supabase"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	SupabaseJWTSecret  string `env:"SUPABASE_JWT_SECRET"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisUseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"true"`
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`

	// Notification webhooks (n8n)
	AdminNotifyWebhook string        `env:"ADMIN_NOTIFY_WEBHOOK"`
	TeamNotifyWebhook  string        `env:"TEAM_NOTIFY_WEBHOOK"`
	NotifyTimeout      time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"30s"`

	// SMTP (선택)
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	// Video vendor
	VideoVendorURL      string        `env:"VIDEO_VENDOR_URL"`
	VideoVendorAPIKey   string        `env:"VIDEO_VENDOR_API_KEY"`
	VideoCallbackSecret string        `env:"VIDEO_CALLBACK_SECRET"`
	VideoVendorTimeout  time.Duration `env:"VIDEO_VENDOR_TIMEOUT" envDefault:"60s"`

	// Idea / script webhooks
	IdeasTimeout  time.Duration `env:"IDEAS_TIMEOUT" envDefault:"90s"`
	ScriptTimeout time.Duration `env:"SCRIPT_TIMEOUT" envDefault:"180s"`

	// Gemini API (ideas webhook가 없을 때 사용)
	GeminiAPIKeys []string `env:"GEMINI_API_KEY" envSeparator:","`
	GeminiModel   string   `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	// Vertex AI (설정되면 Gemini API 대신 사용)
	VertexAIProject  string `env:"VERTEXAI_PROJECT"`
	VertexAILocation string `env:"VERTEXAI_LOCATION" envDefault:"us-central1"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput     string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogFile       string `env:"LOG_FILE" envDefault:"./logs/app.log"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7"`
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Store: %s", cfg.StoreDriver)
	if cfg.RedisEnabled {
		log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	}
	log.Printf("   Video vendor: %s", cfg.VideoVendorURL)
	log.Printf("   Public base URL: %s", cfg.PublicBaseURL)

	return cfg, nil
}

// Parse - 현재 환경변수에서 Config 생성 (.env 로드 없음)
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER: %s", c.StoreDriver)
	}

	if !c.AuthDisabled && c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	if c.RedisEnabled && c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	return nil
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// SMTPEnabled - 이메일 채널 사용 여부
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// VideoCallbackURL - 영상 벤더가 호출할 콜백 URL
func (c *Config) VideoCallbackURL(jobID string) string {
	url := fmt.Sprintf("%s/api/video/callback?jobId=%s", c.PublicBaseURL, jobID)
	if c.VideoCallbackSecret != "" {
		url += "&token=" + c.VideoCallbackSecret
	}
	return url
}
