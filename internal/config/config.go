// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/formulas"
)

// Config holds application configuration
type Config struct {
	Port           int
	LogLevel       string
	DevMode        bool
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	// Analysis defaults, overridable per request
	RiskFreeRate         float64
	Samples              int
	Seed                 uint64
	Workers              int
	FrontierPoints       int
	PeriodsPerYear       float64
	Annualization        string
	Covariance           string
	Alignment            string
	Linkage              string
	Bounds               string // ASSET=LOWER:UPPER,...
	CorrelationThreshold float64

	// Per-request caps
	MaxSamples        int
	MaxFrontierPoints int

	SolverMaxIterations int
	SolverTimeout       time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("FRONTIER_PORT", 8080),
		LogLevel:       getEnv("FRONTIER_LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("FRONTIER_DEV_MODE", false),
		MaxBodyBytes:   int64(getEnvAsInt("FRONTIER_MAX_BODY_BYTES", 10<<20)),
		RequestTimeout: getEnvAsDuration("FRONTIER_REQUEST_TIMEOUT", 60*time.Second),

		RiskFreeRate:         getEnvAsFloat("FRONTIER_RISK_FREE_RATE", optimization.DefaultRiskFreeRate),
		Samples:              getEnvAsInt("FRONTIER_SAMPLES", optimization.DefaultSamples),
		Seed:                 uint64(getEnvAsInt("FRONTIER_SEED", optimization.DefaultSeed)),
		Workers:              getEnvAsInt("FRONTIER_WORKERS", optimization.DefaultWorkers),
		FrontierPoints:       getEnvAsInt("FRONTIER_FRONTIER_POINTS", optimization.DefaultFrontierPoints),
		PeriodsPerYear:       getEnvAsFloat("FRONTIER_PERIODS_PER_YEAR", formulas.TradingDaysPerYear),
		Annualization:        getEnv("FRONTIER_ANNUALIZATION", string(optimization.AnnualizeGeometric)),
		Covariance:           getEnv("FRONTIER_COVARIANCE", string(optimization.CovarianceSample)),
		Alignment:            getEnv("FRONTIER_ALIGNMENT", string(optimization.AlignIntersect)),
		Linkage:              getEnv("FRONTIER_HRP_LINKAGE", string(optimization.LinkageSingle)),
		Bounds:               getEnv("FRONTIER_BOUNDS", ""),
		CorrelationThreshold: getEnvAsFloat("FRONTIER_CORRELATION_THRESHOLD", 0),

		MaxSamples:        getEnvAsInt("FRONTIER_MAX_SAMPLES", optimization.DefaultMaxSamples),
		MaxFrontierPoints: getEnvAsInt("FRONTIER_MAX_FRONTIER_POINTS", optimization.DefaultMaxFrontierPoints),

		SolverMaxIterations: getEnvAsInt("FRONTIER_SOLVER_MAX_ITERATIONS", 0),
		SolverTimeout:       getEnvAsDuration("FRONTIER_SOLVER_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Samples < 0 {
		return fmt.Errorf("samples must not be negative, got %d", c.Samples)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.FrontierPoints < 0 {
		return fmt.Errorf("frontier points must not be negative, got %d", c.FrontierPoints)
	}
	if c.MaxSamples < 1 {
		return fmt.Errorf("max samples must be at least 1, got %d", c.MaxSamples)
	}
	if c.Samples > c.MaxSamples {
		return fmt.Errorf("samples %d exceeds max samples %d", c.Samples, c.MaxSamples)
	}
	if c.MaxFrontierPoints < 1 {
		return fmt.Errorf("max frontier points must be at least 1, got %d", c.MaxFrontierPoints)
	}
	if c.FrontierPoints > c.MaxFrontierPoints {
		return fmt.Errorf("frontier points %d exceeds max frontier points %d", c.FrontierPoints, c.MaxFrontierPoints)
	}
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods per year must be positive, got %v", c.PeriodsPerYear)
	}
	if c.SolverMaxIterations < 0 {
		return fmt.Errorf("solver max iterations must not be negative, got %d", c.SolverMaxIterations)
	}
	_, err := c.Settings()
	return err
}

// Settings converts the analysis defaults into optimizer settings.
func (c *Config) Settings() (optimization.Settings, error) {
	s := optimization.DefaultSettings()
	s.RiskFreeRate = c.RiskFreeRate
	s.Samples = c.Samples
	s.Seed = c.Seed
	s.Workers = c.Workers
	s.FrontierPoints = c.FrontierPoints
	s.CorrelationThreshold = c.CorrelationThreshold
	s.Estimator.PeriodsPerYear = c.PeriodsPerYear

	var err error
	if s.Estimator.Annualization, err = optimization.ParseAnnualization(c.Annualization); err != nil {
		return s, err
	}
	if s.Estimator.Covariance, err = optimization.ParseCovarianceMethod(c.Covariance); err != nil {
		return s, err
	}
	if s.Estimator.Alignment, err = optimization.ParseAlignmentPolicy(c.Alignment); err != nil {
		return s, err
	}
	if s.Linkage, err = optimization.ParseLinkage(c.Linkage); err != nil {
		return s, err
	}

	var bounds map[string]domain.Bounds
	if c.Bounds != "" {
		if bounds, err = optimization.ParseBounds(c.Bounds); err != nil {
			return s, fmt.Errorf("FRONTIER_BOUNDS: %w", err)
		}
	}
	s.Bounds = bounds
	return s, nil
}

// Solver returns the QP solver limits.
func (c *Config) Solver() optimization.SolverSettings {
	return optimization.SolverSettings{
		MaxIterations: c.SolverMaxIterations,
		Timeout:       c.SolverTimeout,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
