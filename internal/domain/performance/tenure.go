package performance

import (
	"fmt"
	"math"
	"time"
)

// Tenure renders time since joining: whole days under thirty days, months
// under a year, otherwise years with one digit taken from floor(months/12*10).
func Tenure(created, now time.Time) string {
	created = created.In(now.Location())
	days := int(math.Floor(now.Sub(created).Hours() / 24))
	if days < 30 {
		return fmt.Sprintf("%d days", max(days, 0))
	}

	years := now.Year() - created.Year()
	months := int(now.Month()) - int(created.Month())
	if months < 0 {
		years--
		months += 12
	}
	if years <= 0 {
		return fmt.Sprintf("%d months", months)
	}
	tenth := int(math.Floor(float64(months) / 12 * 10))
	return fmt.Sprintf("%d.%d years", years, tenth)
}
