package grid

import (
	"strings"
	"time"
)

var headerMonthNames = [12]string{
	"Jan", "Feb", "March", "April", "May", "June", "July", "Aug", "Sept", "Oct", "Nov", "Dec",
}

var monthsByName = func() map[string]time.Month {
	names := make(map[string]time.Month)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		names[full] = m
		names[full[:3]] = m
	}
	names["sept"] = time.September
	return names
}()

func headerMonthName(m time.Month) string {
	return headerMonthNames[m-1]
}

// lookupMonth matches full and abbreviated English month names, ignoring case and a trailing dot.
func lookupMonth(name string) (time.Month, bool) {
	m, ok := monthsByName[strings.ToLower(strings.TrimSuffix(name, "."))]
	return m, ok
}
