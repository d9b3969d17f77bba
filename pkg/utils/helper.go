package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateBookingNumber returns a human readable reference: BKG-YYYYMMDD-XXXXXXXX.
func GenerateBookingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("BKG-%s-%s", now.UTC().Format("20060102"), suffix)
}
