// Package format holds pure helpers for invoice numbering and money
// display. Nothing here touches the database.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// NumberPrefix prefixes every sequentially issued invoice number.
	NumberPrefix = "INV-"

	// LegacyNumberPrefix prefixes deterministic backfill numbers.
	LegacyNumberPrefix = "LEG-"

	// FirstNumber is issued when no prior invoice exists.
	FirstNumber = "INV-000001"

	sequenceWidth = 6
)

var numberRe = regexp.MustCompile(`^INV-(\d+)$`)

// NextNumber derives the successor of the most recently issued invoice
// number. The numeric suffix is extracted, incremented, and re-padded
// to six digits; gaps in the sequence are tolerated and never reused.
//
// This function is pure and deterministic.
func NextNumber(last string) (string, error) {
	if last == "" {
		return FirstNumber, nil
	}

	match := numberRe.FindStringSubmatch(last)
	if match == nil {
		return "", fmt.Errorf("malformed invoice number: %s", last)
	}

	seq, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invoice sequence overflow: %s", last)
	}

	return fmt.Sprintf("%s%0*d", NumberPrefix, sequenceWidth, seq+1), nil
}

// LegacyNumber builds the deterministic number for a backfilled day.
func LegacyNumber(day time.Time) string {
	return LegacyNumberPrefix + day.Format("20060102")
}

// Amount renders minor units as a decimal string with two fraction
// digits, e.g. 4000 -> "40.00", -250 -> "-2.50".
func Amount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
