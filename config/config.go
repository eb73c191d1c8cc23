package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/memalihaider/ai-business-developer-sub004/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// SchedulerConfig collects the scheduler policy knobs that used to be
// scattered inline literals. Defaults are documented on each field.
type SchedulerConfig struct {
	// BatchSize bounds how many due emails one ProcessDueSends call handles (default 50)
	BatchSize int `json:"batch_size"`
	// DefaultSubject is used when a sequence step has no subject (default "Follow-up")
	DefaultSubject string `json:"default_subject"`
	// DefaultStepDelayHours applies when a step or request carries no explicit delay (default 24)
	DefaultStepDelayHours int `json:"default_step_delay_hours"`
	// WorkerInterval is the tick between background processing passes (default 1m)
	WorkerInterval time.Duration `json:"worker_interval"`
	// WorkerEnabled disables the background worker when false (manual trigger only)
	WorkerEnabled bool `json:"worker_enabled"`
}

type Config struct {
	Environment      string          `json:"environment"`
	ServerPort       string          `json:"server_port"`
	BaseURL          string          `json:"base_url"` // used in tracking and unsubscribe links
	CronSecret       string          `json:"-"`        // shared secret for the scheduler trigger endpoint
	DBHost           string          `json:"db_host"`
	DBPort           string          `json:"db_port"`
	DBUser           string          `json:"db_user"`
	DBPassword       string          `json:"-"`
	DBName           string          `json:"db_name"`
	DBSSLMode        string          `json:"db_ssl_mode"`
	DBMaxIdleConns   int             `json:"db_max_idle_conns"`
	DBMaxOpenConns   int             `json:"db_max_open_conns"`
	Redis            RedisConfig     `json:"redis"`
	Scheduler        SchedulerConfig `json:"scheduler"`
	SMTPHost         string          `json:"smtp_host"`
	SMTPPort         int             `json:"smtp_port"`
	SMTPUsername     string          `json:"smtp_username"`
	SMTPPassword     string          `json:"-"`
	FromEmail        string          `json:"from_email"`
	FromName         string          `json:"from_name"`
	SentryDSN        string          `json:"-"`
	RateLimitTrigger int             `json:"rate_limit_trigger"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:5000"),
		CronSecret:     getEnv("CRON_SECRET", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "bizdev"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Scheduler: SchedulerConfig{
			BatchSize:             getEnvAsInt("SCHEDULER_BATCH_SIZE", 50),
			DefaultSubject:        getEnv("SCHEDULER_DEFAULT_SUBJECT", "Follow-up"),
			DefaultStepDelayHours: getEnvAsInt("SCHEDULER_DEFAULT_DELAY_HOURS", 24),
			WorkerInterval:        time.Duration(getEnvAsInt("SCHEDULER_WORKER_INTERVAL_SECONDS", 60)) * time.Second,
			WorkerEnabled:         getEnv("SCHEDULER_WORKER_ENABLED", "true") == "true",
		},
		SMTPHost:         getEnv("SMTP_HOST", "localhost"),
		SMTPPort:         getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		FromEmail:        getEnv("SMTP_FROM_EMAIL", "noreply@example.com"),
		FromName:         getEnv("SMTP_FROM_NAME", ""),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		RateLimitTrigger: getEnvAsInt("RATE_LIMIT_TRIGGER", 30),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.Environment == "production" && AppConfig.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required in production")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Successfully connected to the database")
	log.Println("Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

// CloseDB releases the underlying connection pool. Called on shutdown.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MigrateDB runs the schema migration. Exported so tests can migrate an
// in-memory database.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Contact{},
		&models.ContactCustomField{},
		&models.Sequence{},
		&models.SequenceStep{},
		&models.ScheduledEmail{},
		&models.SequenceRun{},
	)
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Scheduler: batch=%d interval=%s worker=%t",
		AppConfig.Scheduler.BatchSize,
		AppConfig.Scheduler.WorkerInterval,
		AppConfig.Scheduler.WorkerEnabled)
}
