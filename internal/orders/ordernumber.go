package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber formats a human readable order number such as
// 20240501-3F2A9C1B: the UTC date and the first 8 characters of a random UUID.
func NewOrderNumber(now time.Time) string {
	return now.UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}
