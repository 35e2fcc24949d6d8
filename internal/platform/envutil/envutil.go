package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// String reads an environment variable, falling back to def when unset or blank
func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// Int reads an integer environment variable, falling back to def on any problem
func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Duration reads a time.Duration environment variable ("24h", "30s", ...)
func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Decimal reads a decimal environment variable ("0.05", "42.50", ...)
func Decimal(name string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
