package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedDate = errors.New("malformed date")

// DayOfMonth returns the day component of a YYYY-MM-DD key. Only the third
// dash-separated field is parsed; year and month are not checked.
func DayOfMonth(date string) (int, error) {
	parts := strings.Split(date, "-")
	if len(parts) < 3 {
		return 0, fmt.Errorf("%w: %q has no day component", ErrMalformedDate, date)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrMalformedDate, date, err)
	}
	return day, nil
}

// MonthPrefix is the override key prefix shared by every date of a month.
func MonthPrefix(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// OverrideKey joins a YYYY-MM month and a day into an override key.
func OverrideKey(month string, day int) string {
	return fmt.Sprintf("%s-%02d", month, day)
}

func ValidDay(day int) bool {
	return day >= 1 && day <= 31
}
