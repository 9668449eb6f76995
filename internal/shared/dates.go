package shared

import (
	"strconv"
	"strings"
)

// ConvertDateToInt turns a "YYYY-MM-DD" release date into a sortable YYYYMMDD integer.
//
// Platforms report partial precision ("2020" or "2020-05"); missing parts are padded with "00".
// Empty or unparseable input yields 0.
func ConvertDateToInt(date string) int {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0
	}

	parts := strings.SplitN(date, "-", 3)
	year := parts[0]
	month, day := "00", "00"
	if len(parts) > 1 {
		month = padStart(parts[1], 2)
	}
	if len(parts) > 2 {
		day = padStart(parts[2], 2)
	}

	if len(year) != 4 || len(month) != 2 || len(day) != 2 {
		return 0
	}

	n, err := strconv.Atoi(year + month + day)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func padStart(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
