package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cassa/internal/core"
)

// parseDate parses a date string in YYYY-MM-DD format. Empty input falls
// back to now.
func parseDate(dateStr string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(dateStr) == "" {
		return now, nil
	}
	return time.Parse("2006-01-02", strings.TrimSpace(dateStr))
}

// parseSource maps a form value to a money source, defaulting to bank.
func parseSource(v string) (core.MoneySource, error) {
	switch strings.TrimSpace(v) {
	case "", string(core.SourceBank):
		return core.SourceBank, nil
	case string(core.SourceCash):
		return core.SourceCash, nil
	default:
		return "", core.ErrInvalidSource
	}
}

// formatEuros formats cents as a Euro currency string (e.g., "€12,34").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
