package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
	Engine    EngineConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds logger options.
type LogConfig struct {
	Level string
}

// PostgresConfig holds the transactional store settings.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// MongoDBConfig holds settings for the report archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to push summaries to Google Sheets.
// Export is disabled when CredentialsPath is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether a sheet export target is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	StalePriceCron  string
	WeeklyCloseCron string
	Timezone        string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used to deliver alerts.
// Alerts are only logged when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	AlertTo       string
}

// Enabled reports whether alerts can be delivered.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.AlertTo != ""
}

// WithholdingRates are the simplified employee-side withholding rates.
type WithholdingRates struct {
	Federal        float64
	State          float64
	SocialSecurity float64
	Medicare       float64
}

// EmployerRates are the simplified employer-side burden rates.
type EmployerRates struct {
	SocialSecurity float64
	Medicare       float64
	FUTA           float64
	SUTA           float64
}

// SelfEmploymentRates drive the quarterly self-employment tax estimate.
type SelfEmploymentRates struct {
	Rate float64 // combined SS + Medicare rate
	Base float64 // share of net earnings subject to SE tax
}

// EngineConfig is the configuration recognized by the cost, mapping, reporting and payroll
// engines. It is passed explicitly; nothing reads it from globals.
type EngineConfig struct {
	EffectiveHourlyLaborRate float64
	Withholding              WithholdingRates
	Employer                 EmployerRates
	OvertimeMultiplier       float64
	RegexTimeout             time.Duration
	PriceStalenessDays       int
	SelfEmployment           SelfEmploymentRates
	Form1099Threshold        float64
}

// DefaultEngine returns the documented engine defaults.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		EffectiveHourlyLaborRate: 15,
		Withholding: WithholdingRates{
			Federal:        0.12,
			State:          0.05,
			SocialSecurity: 0.062,
			Medicare:       0.0145,
		},
		Employer: EmployerRates{
			SocialSecurity: 0.062,
			Medicare:       0.0145,
			FUTA:           0.006,
			SUTA:           0.027,
		},
		OvertimeMultiplier: 1.5,
		RegexTimeout:       50 * time.Millisecond,
		PriceStalenessDays: 30,
		SelfEmployment: SelfEmploymentRates{
			Rate: 0.153,
			Base: 0.9235,
		},
		Form1099Threshold: 600,
	}
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	engine, err := loadEngine()
	if err != nil {
		return nil, err
	}

	maxConns, err := getenvInt("DATABASE_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(maxConns),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "kitchenledger"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
		},
		Reporting: ReportingConfig{
			StalePriceCron:  getenvWithDefault("STALE_PRICE_CRON", "0 7 * * *"),
			WeeklyCloseCron: getenvWithDefault("WEEKLY_CLOSE_CRON", "0 6 * * 1"),
			Timezone:        getenvWithDefault("TIMEZONE", "America/New_York"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertTo:       os.Getenv("WHATSAPP_ALERT_TO"),
		},
		Engine: engine,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEngine() (EngineConfig, error) {
	e := DefaultEngine()

	floats := []struct {
		key string
		dst *float64
	}{
		{"LABOR_RATE_HOURLY", &e.EffectiveHourlyLaborRate},
		{"WITHHOLDING_FEDERAL_RATE", &e.Withholding.Federal},
		{"WITHHOLDING_STATE_RATE", &e.Withholding.State},
		{"WITHHOLDING_SS_RATE", &e.Withholding.SocialSecurity},
		{"WITHHOLDING_MEDICARE_RATE", &e.Withholding.Medicare},
		{"EMPLOYER_SS_RATE", &e.Employer.SocialSecurity},
		{"EMPLOYER_MEDICARE_RATE", &e.Employer.Medicare},
		{"EMPLOYER_FUTA_RATE", &e.Employer.FUTA},
		{"EMPLOYER_SUTA_RATE", &e.Employer.SUTA},
		{"OVERTIME_MULTIPLIER", &e.OvertimeMultiplier},
		{"SE_TAX_RATE", &e.SelfEmployment.Rate},
		{"SE_TAX_BASE", &e.SelfEmployment.Base},
		{"FORM_1099_THRESHOLD", &e.Form1099Threshold},
	}
	for _, f := range floats {
		v, err := getenvFloat(f.key, *f.dst)
		if err != nil {
			return EngineConfig{}, err
		}
		*f.dst = v
	}

	timeoutMS, err := getenvInt("REGEX_TIMEOUT_MS", int(e.RegexTimeout/time.Millisecond))
	if err != nil {
		return EngineConfig{}, err
	}
	e.RegexTimeout = time.Duration(timeoutMS) * time.Millisecond

	if e.PriceStalenessDays, err = getenvInt("PRICE_STALENESS_DAYS", e.PriceStalenessDays); err != nil {
		return EngineConfig{}, err
	}

	return e, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Postgres.URL == "" {
		return errors.New("DATABASE_URL must be provided")
	}

	if c.Postgres.MaxConns <= 0 {
		return errors.New("DATABASE_MAX_CONNS must be positive")
	}

	if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
		return errors.New("MONGODB_URI and MONGODB_DB_NAME must not be empty")
	}

	if c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_ID must be provided with GOOGLE_SHEETS_CREDENTIALS_PATH")
	}

	if c.Reporting.StalePriceCron == "" || c.Reporting.WeeklyCloseCron == "" {
		return errors.New("STALE_PRICE_CRON and WEEKLY_CLOSE_CRON must not be empty")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return c.Engine.Validate()
}

// Validate rejects rates and limits the engines cannot work with.
func (e EngineConfig) Validate() error {
	if e.EffectiveHourlyLaborRate < 0 {
		return errors.New("LABOR_RATE_HOURLY must not be negative")
	}

	rates := map[string]float64{
		"WITHHOLDING_FEDERAL_RATE":  e.Withholding.Federal,
		"WITHHOLDING_STATE_RATE":    e.Withholding.State,
		"WITHHOLDING_SS_RATE":       e.Withholding.SocialSecurity,
		"WITHHOLDING_MEDICARE_RATE": e.Withholding.Medicare,
		"EMPLOYER_SS_RATE":          e.Employer.SocialSecurity,
		"EMPLOYER_MEDICARE_RATE":    e.Employer.Medicare,
		"EMPLOYER_FUTA_RATE":        e.Employer.FUTA,
		"EMPLOYER_SUTA_RATE":        e.Employer.SUTA,
		"SE_TAX_RATE":               e.SelfEmployment.Rate,
		"SE_TAX_BASE":               e.SelfEmployment.Base,
	}
	for key, rate := range rates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", key, rate)
		}
	}

	if e.OvertimeMultiplier < 1 {
		return errors.New("OVERTIME_MULTIPLIER must be at least 1")
	}

	if e.RegexTimeout <= 0 {
		return errors.New("REGEX_TIMEOUT_MS must be positive")
	}

	if e.PriceStalenessDays <= 0 {
		return errors.New("PRICE_STALENESS_DAYS must be positive")
	}

	if e.Form1099Threshold < 0 {
		return errors.New("FORM_1099_THRESHOLD must not be negative")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
