package purchasing

import (
	"fmt"
	"time"
)

// FormatPONumber número legible de OC: PO-YYYYMMDD-NNN con consecutivo diario.
func FormatPONumber(day time.Time, seq int) string {
	return fmt.Sprintf("PO-%s-%03d", day.Format("20060102"), seq)
}
