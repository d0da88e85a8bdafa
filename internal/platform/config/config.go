package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type Config struct {
	DeviceBaseURL       string
	DeviceAccessToken   string
	DeviceTimeout       time.Duration
	DeviceTimeZone      string
	PINStart            int
	MaxWorkers          int
	NumberOfDays        int
	TransactionPageSize int
	PlannedStartTime    string
	PlannedEndTime      string
	PlannedWorkMinutes  int
	LunchBreakMinutes   int
	EntryPatterns       []string
	ExitPatterns        []string
	ReportVariant       string
	ReportPINs          string
	ReportStartDate     string
	ReportEndDate       string
	ReportInteractive   bool
	OutputDir           string
	OutputFormats       []string
	PDFFontPath         string
	DataEncryptionKey   string
	DatabaseURL         string
	Env                 string
	Addr                string
	JWTSecret           string
	TokenTTL            time.Duration
	AdminUsername       string
	AdminPasswordHash   string
	JobQueueSize        int
	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPassword        string
	SMTPFrom            string
	SMTPUseTLS          bool
	NotifyEmail         string
	LogLevel            string
	LogFormat           string
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DeviceBaseURL:       strings.TrimRight(getEnv("DEVICE_BASE_URL", "http://localhost:8098"), "/"),
		DeviceAccessToken:   getEnv("DEVICE_ACCESS_TOKEN", ""),
		DeviceTimeout:       getEnvDuration("DEVICE_TIMEOUT", 10*time.Second),
		DeviceTimeZone:      getEnv("DEVICE_TZ", "Local"),
		PINStart:            getEnvInt("PIN_START", 1),
		MaxWorkers:          getEnvInt("MAX_WORKERS", 505),
		NumberOfDays:        getEnvInt("NUMBER_OF_DAYS", 30),
		TransactionPageSize: getEnvInt("TRANSACTION_PAGE_SIZE", 100),
		PlannedStartTime:    getEnv("PLANNED_START_TIME", "08:30"),
		PlannedEndTime:      getEnv("PLANNED_END_TIME", "18:30"),
		PlannedWorkMinutes:  getEnvInt("PLANNED_WORK_MINUTES", 540),
		LunchBreakMinutes:   getEnvInt("LUNCH_BREAK_MINUTES", 60),
		EntryPatterns:       getEnvList("ENTRY_PATTERNS", []string{"Турникет-Вход", "Enter tur"}),
		ExitPatterns:        getEnvList("EXIT_PATTERNS", []string{"Турникет-Выход", "Exit tur"}),
		ReportVariant:       strings.ToLower(getEnv("REPORT_VARIANT", "timeline")),
		ReportPINs:          getEnv("REPORT_PINS", ""),
		ReportStartDate:     getEnv("REPORT_START_DATE", ""),
		ReportEndDate:       getEnv("REPORT_END_DATE", ""),
		ReportInteractive:   getEnvBool("REPORT_INTERACTIVE", false),
		OutputDir:           getEnv("OUTPUT_DIR", "."),
		OutputFormats:       getEnvList("OUTPUT_FORMATS", []string{"xlsx"}),
		PDFFontPath:         getEnv("PDF_FONT_PATH", ""),
		DataEncryptionKey:   getEnv("DATA_ENCRYPTION_KEY", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Env:                 strings.ToLower(getEnv("APP_ENV", "development")),
		Addr:                getEnv("APP_ADDR", ":8080"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenTTL:            getEnvDuration("TOKEN_TTL", 12*time.Hour),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:   getEnv("ADMIN_PASSWORD_HASH", ""),
		JobQueueSize:        getEnvInt("JOB_QUEUE_SIZE", 16),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUser:            getEnv("SMTP_USER", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:            getEnv("SMTP_FROM", "attendance-reports@localhost"),
		SMTPUseTLS:          getEnvBool("SMTP_USE_TLS", true),
		NotifyEmail:         getEnv("REPORT_NOTIFY_EMAIL", ""),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Location resolves DEVICE_TZ. Device timestamps carry no offset and are
// read as wall-clock time in this zone.
func (c Config) Location() (*time.Location, error) {
	if c.DeviceTimeZone == "" || strings.EqualFold(c.DeviceTimeZone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.DeviceTimeZone)
}

// PINs parses REPORT_PINS. An empty list means the whole [PINStart, MaxWorkers) range.
func (c Config) PINs() ([]int, error) {
	if strings.TrimSpace(c.ReportPINs) == "" {
		return nil, nil
	}
	var pins []int
	for _, part := range strings.Split(c.ReportPINs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pin, err := strconv.Atoi(part)
		if err != nil || pin <= 0 {
			return nil, fmt.Errorf("REPORT_PINS contains invalid pin %q", part)
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

// DateRange parses REPORT_START_DATE and REPORT_END_DATE in the device zone.
func (c Config) DateRange() (time.Time, time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := time.ParseInLocation(DateLayout, c.ReportStartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("REPORT_START_DATE must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(DateLayout, c.ReportEndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("REPORT_END_DATE must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("REPORT_END_DATE must not be before REPORT_START_DATE")
	}
	return start, end, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DeviceBaseURL) == "" {
		return fmt.Errorf("DEVICE_BASE_URL is required")
	}
	if strings.TrimSpace(c.DeviceAccessToken) == "" {
		return fmt.Errorf("DEVICE_ACCESS_TOKEN is required")
	}
	if c.DeviceTimeout <= 0 {
		return fmt.Errorf("DEVICE_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("DEVICE_TZ is invalid: %w", err)
	}
	if c.PINStart <= 0 {
		return fmt.Errorf("PIN_START must be positive")
	}
	if c.MaxWorkers <= c.PINStart {
		return fmt.Errorf("MAX_WORKERS must be greater than PIN_START")
	}
	if c.NumberOfDays <= 0 {
		return fmt.Errorf("NUMBER_OF_DAYS must be positive")
	}
	if c.TransactionPageSize <= 0 {
		return fmt.Errorf("TRANSACTION_PAGE_SIZE must be positive")
	}
	start, err := time.Parse(clockLayout, c.PlannedStartTime)
	if err != nil {
		return fmt.Errorf("PLANNED_START_TIME must be HH:MM")
	}
	end, err := time.Parse(clockLayout, c.PlannedEndTime)
	if err != nil {
		return fmt.Errorf("PLANNED_END_TIME must be HH:MM")
	}
	if !end.After(start) {
		return fmt.Errorf("PLANNED_END_TIME must be after PLANNED_START_TIME")
	}
	if c.PlannedWorkMinutes < 0 || c.LunchBreakMinutes < 0 {
		return fmt.Errorf("PLANNED_WORK_MINUTES and LUNCH_BREAK_MINUTES must not be negative")
	}
	if _, err := c.PINs(); err != nil {
		return err
	}
	if c.ReportStartDate != "" || c.ReportEndDate != "" {
		if _, _, err := c.DateRange(); err != nil {
			return err
		}
	}
	for _, format := range c.OutputFormats {
		if format != "xlsx" && format != "pdf" {
			return fmt.Errorf("OUTPUT_FORMATS supports xlsx and pdf, got %q", format)
		}
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}
	if c.SMTPHost != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		return fmt.Errorf("SMTP_PORT must be a valid port")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ValidateServer adds the checks that only matter for the HTTP server.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if strings.TrimSpace(c.AdminPasswordHash) == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}
