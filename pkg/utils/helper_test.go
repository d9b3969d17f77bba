package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBookingNumber(t *testing.T) {
	now := time.Date(2030, 7, 4, 23, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^BKG-20300704-[0-9A-F]{8}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := GenerateBookingNumber(now)
		assert.Regexp(t, pattern, n)
		assert.False(t, seen[n])
		seen[n] = true
	}
}
