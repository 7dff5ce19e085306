package cdr

import (
	"strconv"
	"strings"
	"time"

	"github.com/haiminhdev/callstat/db"
)

// Accepted time-of-day layouts. Some switches append fractional seconds, so
// they are tolerated but never required.
var timeLayouts = []string{
	"15:04:05",
	"15:04:05.999999999",
}

// DecodeLine turns one raw line of a switch export file into a CallEvent.
// lineNo is the 1-based position of the line within the file.
//
// The boolean is false when the line is malformed; malformed lines are never
// an error, the caller just counts them. Field data from external telephony
// switches is dirty often enough that per-line diagnostics would be noise.
func DecodeLine(line string, lineNo int) (db.CallEvent, bool) {
	_ = lineNo

	// Strip a single pair of enclosing quotes, if both are present.
	if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' {
		line = line[1 : len(line)-1]
	}

	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return db.CallEvent{}, false
	}

	callDate, ok := parseCallDate(strings.TrimSpace(fields[0]))
	if !ok {
		return db.CallEvent{}, false
	}

	callTime, ok := parseCallTime(strings.TrimSpace(fields[1]))
	if !ok {
		return db.CallEvent{}, false
	}

	// The close reason sits in the second-to-last field; trailing fields vary
	// between switch firmware versions.
	reasonField := strings.TrimSpace(fields[len(fields)-2])
	closeReason, err := strconv.Atoi(reasonField)
	if err != nil || closeReason < 0 {
		return db.CallEvent{}, false
	}

	return db.CallEvent{
		CallDate:    callDate,
		CallTime:    callTime,
		CloseReason: closeReason,
		RecordedAt:  time.Now().UTC(),
	}, true
}

// parseCallDate validates an exact 8-digit YYYYMMDD field and returns the
// calendar day at midnight UTC.
func parseCallDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	for i := 0; i < 8; i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, false
		}
	}

	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])

	if year < 2000 || year > 2100 {
		return time.Time{}, false
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	// time.Date normalizes overflow (Feb 30 -> Mar 2), so a round-trip check
	// rejects combinations that are not real calendar dates.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}

	return t, true
}

// parseCallTime validates a time-of-day field and normalizes it to HH:MM:SS,
// truncating any fractional seconds.
func parseCallTime(s string) (string, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}
