package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
)

const (
	EnvServiceAccount = "FIREBASE_SERVICE_ACCOUNT"
	EnvIssueBody      = "ISSUE_BODY"
	EnvIssueNumber    = "ISSUE_NUMBER"
	EnvIssueHTMLURL   = "ISSUE_HTML_URL"
	EnvIssueCreatedAt = "ISSUE_CREATED_AT"
	EnvIssueUserLogin = "ISSUE_USER_LOGIN"
	EnvApprovedBy     = "APPROVED_BY_LOGIN"
)

const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverRedis     = "redis"
)

type Config struct {
	// Issue inputs
	ServiceAccountJSON string
	IssueBody          string
	IssueNumber        string
	IssueHTMLURL       string
	IssueCreatedAt     string
	IssueUserLogin     string
	ApprovedByLogin    string

	// Store
	StoreDriver        string
	LabsCollection     string
	FirestoreProjectID string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers   []string
	LabEventsTopic string
	NotifyTimeout  time.Duration

	// Issue template
	IssueTemplatePath string

	// Webhook server
	ServerPort          string
	ServerHost          string
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBody      int64
	GitHubWebhookSecret string
	AllowUnsigned       bool
	ApprovalLabel       string
}

func Load() *Config {
	return &Config{
		ServiceAccountJSON: os.Getenv(EnvServiceAccount),
		IssueBody:          os.Getenv(EnvIssueBody),
		IssueNumber:        strings.TrimSpace(os.Getenv(EnvIssueNumber)),
		IssueHTMLURL:       strings.TrimSpace(os.Getenv(EnvIssueHTMLURL)),
		IssueCreatedAt:     strings.TrimSpace(os.Getenv(EnvIssueCreatedAt)),
		IssueUserLogin:     strings.TrimSpace(os.Getenv(EnvIssueUserLogin)),
		ApprovedByLogin:    strings.TrimSpace(os.Getenv(EnvApprovedBy)),

		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", DriverFirestore)),
		LabsCollection:     getEnv("LABS_COLLECTION", "labs"),
		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "labs"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "labs"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:   getStringSliceEnv("KAFKA_BROKERS", nil),
		LabEventsTopic: getEnv("LAB_EVENTS_TOPIC", ""),
		NotifyTimeout:  getDuration("NOTIFY_TIMEOUT", 5*time.Second),

		IssueTemplatePath: getEnv("ISSUE_TEMPLATE_PATH", ""),

		ServerPort:          getEnv("SERVER_PORT", "8080"),
		ServerHost:          getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:         getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody:      int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),
		GitHubWebhookSecret: getEnv("GITHUB_WEBHOOK_SECRET", ""),
		AllowUnsigned:       getBoolEnv("ALLOW_UNSIGNED_WEBHOOKS", false),
		ApprovalLabel:       getEnv("APPROVAL_LABEL", "approved"),
	}
}

// RequiredEnvVars lists the variables the one-shot publisher cannot run
// without. The service account is only needed by the Firestore backend.
func (c *Config) RequiredEnvVars() []string {
	names := make([]string, 0, 7)
	if c.StoreDriver == "" || c.StoreDriver == DriverFirestore {
		names = append(names, EnvServiceAccount)
	}
	return append(names,
		EnvIssueBody,
		EnvIssueNumber,
		EnvIssueHTMLURL,
		EnvIssueCreatedAt,
		EnvIssueUserLogin,
		EnvApprovedBy,
	)
}

// NotificationsEnabled reports whether publish events should go to Kafka.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.LabEventsTopic != ""
}

// RequireEnv fails on the first name that is unset or only whitespace.
func RequireEnv(names ...string) error {
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			return failure.Configuration(name, fmt.Errorf("Missing required environment variable: %s", name))
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
