package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort  string
	LogLevel  string
	LogFormat string

	StoreDriver string
	MongoURL    string
	MongoDB     string
	SQLitePath  string

	JWTSecret      string
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	GeminiAPIKey string
	GeminiModel  string

	LLMTimeout time.Duration

	SearchEnabled bool
	SearchURL     string
	SearchTimeout time.Duration
	SearchRate    int

	CacheTTL        time.Duration
	CacheMaxEntries int
	SessionTTL      time.Duration

	QAModelPath    string
	UploadDir      string
	MaxUploadBytes int64

	BuiltinAccounts []Account

	RequireGmail bool
	CheckMX      bool

	SMTPServer     string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	AppName        string
	FrontendURL    string
}

// Account is a statically configured login.
type Account struct {
	Username string
	Password string
	Role     string
	Email    string
}

const defaultBuiltinAccounts = "superadmin:superadmin123:superadmin:superadmin@aiclone.local;" +
	"user1:user123:user:user1@aiclone.local;" +
	"user2:user123:user:user2@aiclone.local"

var AppConfig Config

// LoadConfig reads the optional .env file and the process environment into AppConfig.
func LoadConfig() error {
	// a missing .env is fine, the environment may carry everything
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func FromEnv() (Config, error) {
	accounts, err := ParseAccounts(getEnv("BUILTIN_ACCOUNTS", defaultBuiltinAccounts))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:  getEnv("HTTP_PORT", "8000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		MongoURL:    getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "aiclone_db"),
		SQLitePath:  getEnv("SQLITE_PATH", "aiclone.db"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AccessTokenTTL: getEnvAsDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		ResetTokenTTL:  getEnvAsDuration("RESET_TOKEN_TTL", 24*time.Hour),

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqModel:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		LLMTimeout: getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),

		SearchEnabled: getEnvAsBool("SEARCH_ENABLED", true),
		SearchURL:     getEnv("SEARCH_URL", "https://api.duckduckgo.com/"),
		SearchTimeout: getEnvAsDuration("SEARCH_TIMEOUT", 5*time.Second),
		SearchRate:    getEnvAsInt("SEARCH_RATE", 2),

		CacheTTL:        getEnvAsDuration("CACHE_TTL", time.Hour),
		CacheMaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 10000),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 2*time.Hour),

		QAModelPath:    getEnv("QA_MODEL_PATH", "qa_model.json"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024)),

		BuiltinAccounts: accounts,

		RequireGmail: getEnvAsBool("REQUIRE_GMAIL", true),
		CheckMX:      getEnvAsBool("CHECK_MX", true),

		SMTPServer:     getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
		SenderEmail:    getEnv("SENDER_EMAIL", ""),
		SenderPassword: getEnv("SENDER_PASSWORD", ""),
		AppName:        getEnv("APP_NAME", "AIClone"),
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.StoreDriver {
	case "mongo", "sqlite":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want mongo or sqlite)", c.StoreDriver)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

// ParseAccounts reads "user:pass:role[:email]" records separated by ';'.
func ParseAccounts(raw string) ([]Account, error) {
	var accounts []Account
	for _, rec := range strings.Split(raw, ";") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		parts := strings.Split(rec, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid builtin account record %q", rec)
		}
		acc := Account{Username: parts[0], Password: parts[1], Role: parts[2]}
		if len(parts) == 4 {
			acc.Email = parts[3]
		}
		if acc.Username == "" || acc.Password == "" {
			return nil, fmt.Errorf("invalid builtin account record %q", rec)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or bare seconds ("3600").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
