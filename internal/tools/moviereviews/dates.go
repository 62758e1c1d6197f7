package moviereviews

import "time"

const (
	isoDateLayout     = "2006-01-02"
	compactDateLayout = "20060102"
)

// NormaliseDate coerces a user supplied date into the API's compact YYYYMMDD
// form. It returns ok=false when there is nothing usable to send, which the
// caller treats as "no date bound" rather than an error.
func NormaliseDate(value string) (string, bool) {
	if value == "" {
		return "", false
	}

	if len(value) == 8 && isAllDigits(value) {
		return value, true
	}

	if len(value) != len(isoDateLayout) {
		return "", false
	}

	parsed, err := time.Parse(isoDateLayout, value)
	if err != nil {
		return "", false
	}
	return parsed.Format(compactDateLayout), true
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
