// Package datetime implements the RFC 5322 date-time grammar.
//
// Rules are layered on package parse and follow its conventions: each takes
// the input and returns the remaining input, the value and an error. Values are
// validated against their ranges but never normalized, e.g. the zone offset is
// kept as written and the day of the week is not checked against the date.
package datetime

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mjl-/mimeparse/parse"
)

// Zone is a time zone offset as written, e.g. "-0500".
type Zone struct {
	Positive bool // For "+". A "-0000" zone has Positive false.
	Hours    int  // 0-99.
	Minutes  int  // 0-59.
}

// Offset returns the offset from UTC in seconds.
func (z Zone) Offset() int {
	s := z.Hours*3600 + z.Minutes*60
	if !z.Positive {
		return -s
	}
	return s
}

func (z Zone) String() string {
	sign := "+"
	if !z.Positive {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d%02d", sign, z.Hours, z.Minutes)
}

// Time is a time of day with zone.
type Time struct {
	Hour   int // 0-23.
	Minute int // 0-59.
	Second int // 0-60, 60 for a leap second.
	Zone   Zone
}

// Date is a calendar date. The day is not checked against the number of days
// in the month.
type Date struct {
	Day   int // 1-31.
	Month time.Month
	Year  int // At least 1990.
}

// DateTime is a parsed RFC 5322 date-time.
type DateTime struct {
	Weekday *time.Weekday // Optional, informational only.
	Date    Date
	Time    Time
}

// Timestamp returns dt as time.Time in a fixed zone with the offset of dt. A leap
// second is folded into the next minute, as time.Date does.
func (dt DateTime) Timestamp() time.Time {
	loc := time.FixedZone(dt.Time.Zone.String(), dt.Time.Zone.Offset())
	return time.Date(dt.Date.Year, dt.Date.Month, dt.Date.Day, dt.Time.Hour, dt.Time.Minute, dt.Time.Second, 0, loc)
}

// String returns dt in RFC 5322 syntax.
func (dt DateTime) String() string {
	var s string
	if dt.Weekday != nil {
		s = dt.Weekday.String()[:3] + ", "
	}
	return s + fmt.Sprintf("%d %s %04d %02d:%02d:%02d %s", dt.Date.Day, dt.Date.Month.String()[:3], dt.Date.Year, dt.Time.Hour, dt.Time.Minute, dt.Time.Second, dt.Time.Zone)
}

var (
	errDayNameShort = parse.Known("expected day name, but characters are missing (at least 3)")
	errDayName      = parse.Known("not a valid day name")
	errMonthShort   = parse.Known("expected month, but characters are missing (at least 3)")
	errMonth        = parse.Known("not a valid month")
	errYearDigit    = parse.Known("no digit in year")
	errYearShort    = parse.Known("year is expected to have 4 digits or more")
	errYearParse    = parse.Known("failed to parse year")
	errYearEarly    = parse.Known("year must be 1990 or later")
	errDayRange     = parse.Known("day must be between 1 and 31")
	errHour         = parse.Known("hour must be less than 24")
	errMinute       = parse.Known("minute must be less than 60")
	errSecond       = parse.Known("second must be at most 60")
	errZoneShort    = parse.Known("expected more characters in zone")
	errZoneSign     = parse.Known("invalid sign character in zone")
	errZoneMinutes  = parse.Known("zone minutes out of range")
	errTrailing     = parse.Known("unexpected data after date-time")
)

var dayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

var monthNames = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// lower3 returns the first 3 bytes of buf in lower case.
func lower3(buf []byte) string {
	var b [3]byte
	for i, c := range buf[:3] {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b[:])
}

// DayName parses a case-insensitive 3-letter weekday abbreviation.
//
// RFC 5322 3.3
func DayName(buf []byte) ([]byte, time.Weekday, error) {
	if len(buf) < 3 {
		return buf, 0, errDayNameShort
	}
	d, ok := dayNames[lower3(buf)]
	if !ok {
		return buf, 0, errDayName
	}
	return buf[3:], d, nil
}

// Month parses a case-insensitive 3-letter month abbreviation.
func Month(buf []byte) ([]byte, time.Month, error) {
	if len(buf) < 3 {
		return buf, 0, errMonthShort
	}
	m, ok := monthNames[lower3(buf)]
	if !ok {
		return buf, 0, errMonth
	}
	return buf[3:], m, nil
}

// DayOfWeek parses optional folding whitespace, a day name and a comma. A
// missing comma or unknown day name is an error, callers wanting an optional
// day of week use parse.Optional.
func DayOfWeek(buf []byte) ([]byte, time.Weekday, error) {
	rest, _, _ := parse.Optional(buf, parse.FWS)
	rest, d, err := DayName(rest)
	if err != nil {
		return buf, 0, err
	}
	rest, err = parse.Tag(rest, []byte(","))
	if err != nil {
		return buf, 0, err
	}
	return rest, d, nil
}

// Year parses folding whitespace, a year of at least 4 digits that is 1990 or
// later, and trailing folding whitespace.
func Year(buf []byte) ([]byte, int, error) {
	rest, _, err := parse.FWS(buf)
	if err != nil {
		return buf, 0, err
	}
	rest, digits, err := parse.TakeWhile1(rest, parse.IsDigit)
	if err != nil {
		return buf, 0, errYearDigit
	}
	if len(digits) < 4 {
		return buf, 0, errYearShort
	}
	year, err := strconv.Atoi(parse.ASCII(digits))
	if err != nil {
		return buf, 0, errYearParse
	}
	if year < 1990 {
		return buf, 0, errYearEarly
	}
	rest, _, err = parse.FWS(rest)
	if err != nil {
		return buf, 0, err
	}
	return rest, year, nil
}

// Day parses optional folding whitespace, a day of month of 1 or 2 digits, and
// trailing folding whitespace.
func Day(buf []byte) ([]byte, int, error) {
	rest, _, _ := parse.Optional(buf, parse.FWS)
	rest, day, err := parse.Digit(rest)
	if err != nil {
		return buf, 0, err
	}
	if r, d, ok := parse.Optional(rest, parse.Digit); ok {
		day = day*10 + d
		rest = r
	}
	if day < 1 || day > 31 {
		return buf, 0, errDayRange
	}
	rest, _, err = parse.FWS(rest)
	if err != nil {
		return buf, 0, err
	}
	return rest, day, nil
}

// TimeOfDay parses "hh:mm" with optional ":ss". The time has no zone.
//
// If the colon for seconds is present but not followed by two digits, the
// seconds are treated as absent and parsing stops before the colon.
func TimeOfDay(buf []byte) ([]byte, Time, error) {
	rest, hour, err := parse.TwoDigits(buf)
	if err != nil {
		return buf, Time{}, err
	}
	if hour > 23 {
		return buf, Time{}, errHour
	}
	rest, err = parse.Tag(rest, []byte(":"))
	if err != nil {
		return buf, Time{}, err
	}
	rest, minute, err := parse.TwoDigits(rest)
	if err != nil {
		return buf, Time{}, err
	}
	if minute > 59 {
		return buf, Time{}, errMinute
	}

	tm := Time{Hour: hour, Minute: minute}
	// todo: a malformed seconds group is now silently ignored, leaving ":x" for the next rule to fail on. decide whether it should be an error.
	if r, err := parse.Tag(rest, []byte(":")); err == nil {
		if r, second, err := parse.TwoDigits(r); err == nil {
			// Leap second is allowed.
			if second > 60 {
				return buf, Time{}, errSecond
			}
			tm.Second = second
			rest = r
		}
	}
	return rest, tm, nil
}

// ParseZone parses folding whitespace and a zone like "+0100".
func ParseZone(buf []byte) ([]byte, Zone, error) {
	rest, _, err := parse.FWS(buf)
	if err != nil {
		return buf, Zone{}, err
	}
	var z Zone
	if len(rest) == 0 {
		return buf, Zone{}, errZoneShort
	}
	switch rest[0] {
	case '+':
		z.Positive = true
	case '-':
	default:
		return buf, Zone{}, errZoneSign
	}
	rest = rest[1:]
	rest, z.Hours, err = parse.TwoDigits(rest)
	if err != nil {
		return buf, Zone{}, err
	}
	rest, z.Minutes, err = parse.TwoDigits(rest)
	if err != nil {
		return buf, Zone{}, err
	}
	if z.Minutes > 59 {
		return buf, Zone{}, errZoneMinutes
	}
	return rest, z, nil
}

// ParseTime parses a time of day followed by a zone.
func ParseTime(buf []byte) ([]byte, Time, error) {
	rest, tm, err := TimeOfDay(buf)
	if err != nil {
		return buf, Time{}, err
	}
	rest, tm.Zone, err = ParseZone(rest)
	if err != nil {
		return buf, Time{}, err
	}
	return rest, tm, nil
}

// ParseDate parses day, month and year, in that order.
func ParseDate(buf []byte) ([]byte, Date, error) {
	rest, day, err := Day(buf)
	if err != nil {
		return buf, Date{}, err
	}
	rest, month, err := Month(rest)
	if err != nil {
		return buf, Date{}, err
	}
	rest, year, err := Year(rest)
	if err != nil {
		return buf, Date{}, err
	}
	return rest, Date{day, month, year}, nil
}

// ParseDateTime parses a date-time: an optional day of week, a date, a time and
// optional trailing comments and whitespace.
//
// RFC 5322 3.3
func ParseDateTime(buf []byte) ([]byte, DateTime, error) {
	var dt DateTime
	rest, wd, ok := parse.Optional(buf, DayOfWeek)
	if ok {
		dt.Weekday = &wd
	}
	rest, date, err := ParseDate(rest)
	if err != nil {
		return buf, DateTime{}, err
	}
	rest, tm, err := ParseTime(rest)
	if err != nil {
		return buf, DateTime{}, err
	}
	rest, err = parse.SkipCFWS(rest)
	if err != nil {
		return buf, DateTime{}, err
	}
	dt.Date = date
	dt.Time = tm
	return rest, dt, nil
}

// Parse parses s as a complete date-time, e.g. a Date header value. Leading
// whitespace is allowed. All input must be consumed.
func Parse(s string) (DateTime, error) {
	buf := []byte(s)
	buf, err := parse.SkipCFWS(buf)
	if err != nil {
		return DateTime{}, err
	}
	rest, dt, err := ParseDateTime(buf)
	if err != nil {
		return DateTime{}, err
	}
	if len(rest) != 0 {
		return DateTime{}, fmt.Errorf("%w: %q", errTrailing, rest)
	}
	return dt, nil
}
