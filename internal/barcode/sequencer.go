// Package barcode computes record barcodes in YY-NNNNN form: two-digit year,
// hyphen, five-digit zero-padded sequence.
package barcode

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^\d{2}-\d{5}$`)

// Valid reports whether s is a well-formed barcode.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// Year returns the two-digit year prefix of a barcode, or -1 if it cannot be
// parsed.
func Year(s string) int {
	if len(s) < 2 {
		return -1
	}
	y, err := strconv.Atoi(s[:2])
	if err != nil {
		return -1
	}
	return y
}

// Next computes the barcode that follows last under the clock value now.
//
// The sequence increments only when last carries the current two-digit year;
// every other case (empty, malformed, previous year, multi-year gap, future
// year) restarts at 00001 under the current year. The previous-year restart
// is the intended January rollover. A gap of more than one year also restarts
// silently, which erases sequence continuity; callers that care should detect
// it with Year and log a diagnostic before assigning.
//
// Next is pure. The caller must supply the true last-assigned barcode and
// serialize calls so concurrent batches never observe the same last value.
func Next(last string, now time.Time) string {
	year := now.Year() % 100
	seq := 1
	if Valid(last) {
		if prev, err := strconv.Atoi(last[:2]); err == nil && prev == year {
			if n, err := strconv.Atoi(last[3:]); err == nil {
				seq = n + 1
			}
		}
	}
	return fmt.Sprintf("%02d-%05d", year, seq)
}
