package utils

import "time"

const isoDay = "2006-01-02"

// FormatLongDate renders an ISO day ("2006-01-02") as a weekday-qualified
// long date, e.g. "Monday, March 2, 2026". Unparseable input is returned
// unchanged.
func FormatLongDate(isoDate string) string {
	t, err := time.Parse(isoDay, isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("Monday, January 2, 2006")
}
