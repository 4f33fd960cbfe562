package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	// MongoDB Configuration
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// HTTP Server Configuration
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// CORS Configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int

	// Task Coordinator Configuration
	QueueCapacity    int
	QueueLoopBackoff time.Duration

	// Browser Configuration
	BrowserProfilePath    string
	BrowserStatePath      string
	BrowserExecPath       string
	BrowserHeadless       bool
	BrowserAcquireTimeout time.Duration

	// Automation Configuration
	AutomationMaxSteps            int
	AutomationProbeTimeout        time.Duration
	AutomationNavigationTimeout   time.Duration
	AutomationNewTabWait          time.Duration
	AutomationPacingMin           time.Duration
	AutomationPacingMax           time.Duration
	AutomationRequireConfirmation bool

	// Text Generation Configuration
	AIPrimaryProvider string
	AIBackupProvider  string
	OllamaBaseURL     string
	OllamaModel       string
	OpenAIBaseURL     string
	OpenAIAPIKey      string
	OpenAIModel       string
	AIRequestsPerMin  int
	AITimeout         time.Duration

	// Event Webhook Configuration
	EventWebhookURL     string
	EventWebhookTimeout time.Duration

	// Scheduler Configuration
	AutoApplyEnabled      bool
	AutoApplySchedule     string
	AutoApplyBatchSize    int
	AutoApplyRetryBackoff time.Duration
	SchedulerTickInterval time.Duration
	SchedulerLockTTL      time.Duration

	// Paths and defaults
	DataDir          string
	OutputDir        string
	DefaultProfileID string
}

// Load reads configuration from a .env file (if present) and environment variables
func Load() *Config {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/job_search?authSource=admin"),
		MongoDatabase: getEnv("MONGO_DATABASE", "job_search"),
		MongoTimeout:  getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,

		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8000"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 30) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 30) * time.Second,

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// CORS
		CORSAllowedOrigins:   getListEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS"),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", "*"),
		CORSAllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAge:           getIntEnv("CORS_MAX_AGE", 3600),

		// Task Coordinator
		QueueCapacity:    getIntEnv("QUEUE_CAPACITY", 256),
		QueueLoopBackoff: getDurationEnv("QUEUE_LOOP_BACKOFF_MS", 1000) * time.Millisecond,

		// Browser
		BrowserProfilePath:    getEnv("BROWSER_PROFILE_PATH", ""),
		BrowserStatePath:      getEnv("BROWSER_STATE_PATH", dataDir+"/auth_state.json"),
		BrowserExecPath:       getEnv("BROWSER_EXEC_PATH", ""),
		BrowserHeadless:       getBoolEnv("BROWSER_HEADLESS", false),
		BrowserAcquireTimeout: getDurationEnv("BROWSER_ACQUIRE_TIMEOUT_SEC", 30) * time.Second,

		// Automation
		AutomationMaxSteps:            getIntEnv("AUTOMATION_MAX_STEPS", 5),
		AutomationProbeTimeout:        getDurationEnv("AUTOMATION_PROBE_TIMEOUT_MS", 2000) * time.Millisecond,
		AutomationNavigationTimeout:   getDurationEnv("AUTOMATION_NAVIGATION_TIMEOUT_SEC", 15) * time.Second,
		AutomationNewTabWait:          getDurationEnv("AUTOMATION_NEW_TAB_WAIT_SEC", 5) * time.Second,
		AutomationPacingMin:           getDurationEnv("AUTOMATION_PACING_MIN_MS", 1000) * time.Millisecond,
		AutomationPacingMax:           getDurationEnv("AUTOMATION_PACING_MAX_MS", 3000) * time.Millisecond,
		AutomationRequireConfirmation: getBoolEnv("AUTOMATION_REQUIRE_CONFIRMATION", false),

		// Text Generation
		AIPrimaryProvider: getEnv("AI_PRIMARY_PROVIDER", "ollama"),
		AIBackupProvider:  getEnv("AI_BACKUP_PROVIDER", "openai"),
		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3.1"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIRequestsPerMin:  getIntEnv("AI_REQUESTS_PER_MINUTE", 30),
		AITimeout:         getDurationEnv("AI_TIMEOUT_SEC", 60) * time.Second,

		// Event Webhook
		EventWebhookURL:     getEnv("EVENT_WEBHOOK_URL", ""),
		EventWebhookTimeout: getDurationEnv("EVENT_WEBHOOK_TIMEOUT_SEC", 10) * time.Second,

		// Scheduler
		AutoApplyEnabled:      getBoolEnv("AUTO_APPLY_ENABLED", false),
		AutoApplySchedule:     getEnv("AUTO_APPLY_SCHEDULE", "0 9 * * 1-5"),
		AutoApplyBatchSize:    getIntEnv("AUTO_APPLY_BATCH_SIZE", 10),
		AutoApplyRetryBackoff: getDurationEnv("AUTO_APPLY_RETRY_BACKOFF_SEC", 86400) * time.Second,
		SchedulerTickInterval: getDurationEnv("SCHEDULER_TICK_INTERVAL_SEC", 60) * time.Second,
		SchedulerLockTTL:      getDurationEnv("SCHEDULER_LOCK_TTL_SEC", 300) * time.Second,

		// Paths
		DataDir:          dataDir,
		OutputDir:        getEnv("OUTPUT_DIR", "output"),
		DefaultProfileID: getEnv("DEFAULT_PROFILE_ID", "default"),
	}
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return errors.New("QUEUE_CAPACITY must be positive")
	}
	if c.AutomationMaxSteps <= 0 {
		return errors.New("AUTOMATION_MAX_STEPS must be positive")
	}
	if c.AutomationPacingMax < c.AutomationPacingMin {
		return fmt.Errorf("AUTOMATION_PACING_MAX_MS (%s) is below AUTOMATION_PACING_MIN_MS (%s)",
			c.AutomationPacingMax, c.AutomationPacingMin)
	}
	if c.AutoApplyEnabled {
		if _, err := ParseSchedule(c.AutoApplySchedule); err != nil {
			return fmt.Errorf("invalid AUTO_APPLY_SCHEDULE: %w", err)
		}
	}
	return nil
}

// ParseSchedule parses a standard five-field cron expression
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
