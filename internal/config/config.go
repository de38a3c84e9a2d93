package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Moderation
	ModeratorIDs   string
	ModeratorToken string

	// Screening
	Screening ScreeningConfig

	// Server
	Port        string
	CORSOrigins string
}

// TrustBand is one row of the trust-multiplier table. Bands are evaluated
// highest MinScore first; the first matching band wins.
type TrustBand struct {
	MinScore   int
	Multiplier float64
}

// ScreeningConfig holds the tunable thresholds of the pre-screening
// decision table. Injected, not hardcoded, so operators can retune the
// decision logic without redeploying.
type ScreeningConfig struct {
	AutoRejectConfidence float64 // reject when confidence >= this ...
	AutoRejectRisk       float64 // ... and raw risk >= this
	AutoApproveTrust     int     // approve when trust >= this ...
	AutoApproveRisk      float64 // ... and adjusted risk < this (exclusive)
	FlagRisk             float64 // flag when adjusted risk >= this
	TrustBands           []TrustBand
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "hazardwatch_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		ModeratorIDs:   getEnv("MODERATOR_USER_IDS", ""),
		ModeratorToken: getEnv("MODERATOR_TOKEN", ""),

		Screening: ScreeningConfig{
			AutoRejectConfidence: parseFloat(getEnv("SCREENING_AUTO_REJECT_CONFIDENCE", "0.9"), 0.9),
			AutoRejectRisk:       parseFloat(getEnv("SCREENING_AUTO_REJECT_RISK", "0.8"), 0.8),
			AutoApproveTrust:     parseInt(getEnv("SCREENING_AUTO_APPROVE_TRUST", "500"), 500),
			AutoApproveRisk:      parseFloat(getEnv("SCREENING_AUTO_APPROVE_RISK", "0.2"), 0.2),
			FlagRisk:             parseFloat(getEnv("SCREENING_FLAG_RISK", "0.6"), 0.6),
			TrustBands:           ParseTrustBands(getEnv("SCREENING_TRUST_BANDS", "500:0.3,200:0.5,50:0.8")),
		},

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// DefaultTrustBands is the multiplier table shipped out of the box.
func DefaultTrustBands() []TrustBand {
	return []TrustBand{
		{MinScore: 500, Multiplier: 0.3},
		{MinScore: 200, Multiplier: 0.5},
		{MinScore: 50, Multiplier: 0.8},
	}
}

// ParseTrustBands parses "500:0.3,200:0.5,50:0.8" into a band table sorted
// highest MinScore first. Malformed entries are dropped; an empty result
// falls back to the defaults.
func ParseTrustBands(s string) []TrustBand {
	var bands []TrustBand
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		mult, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || mult < 0 || mult > 1 {
			continue
		}
		bands = append(bands, TrustBand{MinScore: score, Multiplier: mult})
	}
	if len(bands) == 0 {
		return DefaultTrustBands()
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinScore > bands[j].MinScore })
	return bands
}

// Multiplier returns the trust multiplier for a score: the first band the
// score clears, or 1.0 below every band.
func (sc ScreeningConfig) Multiplier(trustScore int) float64 {
	for _, b := range sc.TrustBands {
		if trustScore >= b.MinScore {
			return b.Multiplier
		}
	}
	return 1.0
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
