package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay  = 24 * 60
	minutesPerWeek = 7 * minutesPerDay
)

// OpeningHours holds either structured periods or free-text weekday lines.
// Periods take priority when both are present.
type OpeningHours struct {
	Periods     []Period `json:"periods,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

// Period is one open/close span. Close is nil for venues that never close.
type Period struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// DayTime is a weekday (0 = Sunday) and a wall-clock time formatted "HHMM".
type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// IsOpenAt reports whether the venue is open at minute (minutes since
// midnight) on day. Venues without usable hours data count as open.
func (h *OpeningHours) IsOpenAt(day time.Weekday, minute int) bool {
	if h == nil {
		return true
	}
	if len(h.Periods) > 0 {
		if open, ok := openByPeriods(h.Periods, day, minute); ok {
			return open
		}
	}
	if len(h.WeekdayText) > 0 {
		if open, ok := openByWeekdayText(h.WeekdayText, day, minute); ok {
			return open
		}
	}
	return true
}

// openByPeriods evaluates structured periods on a minute-of-week axis so
// overnight spans and spans that wrap from Saturday into Sunday fall out of
// the same comparison. ok is false when no period could be parsed.
func openByPeriods(periods []Period, day time.Weekday, minute int) (open, ok bool) {
	q := int(day)*minutesPerDay + minute

	for _, p := range periods {
		openMin, err := ParseClock(p.Open.Time)
		if err != nil || p.Open.Day < 0 || p.Open.Day > 6 {
			continue
		}
		ok = true

		if p.Close == nil {
			// A lone Sunday 00:00 open with no close is the around-the-clock marker.
			if len(periods) == 1 && p.Open.Day == 0 && openMin == 0 {
				return true, true
			}
			if int(day) == p.Open.Day && minute >= openMin {
				return true, true
			}
			continue
		}

		closeMin, err := ParseClock(p.Close.Time)
		if err != nil || p.Close.Day < 0 || p.Close.Day > 6 {
			continue
		}

		start := p.Open.Day*minutesPerDay + openMin
		end := p.Close.Day*minutesPerDay + closeMin
		if end <= start {
			if p.Close.Day == p.Open.Day {
				end += minutesPerDay
			} else {
				end += minutesPerWeek
			}
		}

		// q+minutesPerWeek covers a period that started on an earlier day and
		// runs past midnight (or past Saturday) into the query day.
		if (q >= start && q < end) || (q+minutesPerWeek >= start && q+minutesPerWeek < end) {
			return true, true
		}
	}
	return false, ok
}

type dayStatus int

const (
	dayRanges dayStatus = iota
	dayClosed
	dayAlwaysOpen
)

type clockRange struct {
	open, close int
}

func (r clockRange) overnight() bool {
	return r.close <= r.open
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
	"יום ראשון": time.Sunday,
	"יום שני":   time.Monday,
	"יום שלישי": time.Tuesday,
	"יום רביעי": time.Wednesday,
	"יום חמישי": time.Thursday,
	"יום שישי":  time.Friday,
	"שבת":       time.Saturday,
}

var rangePattern = regexp.MustCompile(
	`(\d{1,2})(?::(\d{2}))?\s*([AaPp]\.?[Mm]\.?)?\s*(?:–|—|-|to)\s*(\d{1,2})(?::(\d{2}))?\s*([AaPp]\.?[Mm]\.?)?`,
)

var spaceReplacer = strings.NewReplacer("\u202f", " ", "\u2009", " ", "\u00a0", " ")

// openByWeekdayText evaluates "Monday: 12:00 PM – 11:00 PM" style lines.
func openByWeekdayText(lines []string, day time.Weekday, minute int) (open, ok bool) {
	byDay := make(map[time.Weekday]string, 7)
	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		if wd, found := weekdayNames[name]; found {
			byDay[wd] = strings.TrimSpace(line[idx+1:])
		}
	}
	if len(byDay) == 0 {
		return false, false
	}

	prev := (day + 6) % 7
	if text, found := byDay[prev]; found {
		if status, ranges := parseDayHours(text); status == dayRanges {
			for _, r := range ranges {
				if r.overnight() && minute < r.close {
					return true, true
				}
			}
		}
	}

	text, found := byDay[day]
	if !found {
		return true, true
	}

	status, ranges := parseDayHours(text)
	switch status {
	case dayClosed:
		return false, true
	case dayAlwaysOpen:
		return true, true
	}
	if len(ranges) == 0 {
		// Unparseable text for the day: do not exclude on bad data.
		return true, true
	}
	for _, r := range ranges {
		if r.overnight() {
			if minute >= r.open {
				return true, true
			}
			continue
		}
		if minute >= r.open && minute < r.close {
			return true, true
		}
	}
	return false, true
}

func parseDayHours(text string) (dayStatus, []clockRange) {
	s := strings.ToLower(spaceReplacer.Replace(text))
	switch {
	case strings.Contains(s, "closed"), strings.Contains(s, "סגור"):
		return dayClosed, nil
	case strings.Contains(s, "24 hours"), strings.Contains(s, "24/7"), strings.Contains(s, "24 שעות"):
		return dayAlwaysOpen, nil
	}

	var ranges []clockRange
	for _, m := range rangePattern.FindAllStringSubmatch(s, -1) {
		openH, _ := strconv.Atoi(m[1])
		openM, _ := strconv.Atoi(m[2])
		closeH, _ := strconv.Atoi(m[4])
		closeM, _ := strconv.Atoi(m[5])
		openMer, closeMer := meridiem(m[3]), meridiem(m[6])

		closeMin, ok := toMinutes(closeH, closeM, closeMer)
		if !ok {
			continue
		}

		inherited := false
		if openMer == "" && closeMer != "" {
			openMer, inherited = closeMer, true
		}
		openMin, ok := toMinutes(openH, openM, openMer)
		if !ok {
			continue
		}
		// "11:00 – 3:00 PM" means 11 AM, not 11 PM.
		if inherited && openMer == "pm" && openMin > closeMin {
			if am, ok := toMinutes(openH, openM, "am"); ok {
				openMin = am
			}
		}
		ranges = append(ranges, clockRange{open: openMin, close: closeMin})
	}
	return dayRanges, ranges
}

func meridiem(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), ".", "")
	switch s {
	case "am", "pm":
		return s
	}
	return ""
}

func toMinutes(h, m int, mer string) (int, bool) {
	if m < 0 || m > 59 {
		return 0, false
	}
	switch mer {
	case "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h != 12 {
			h += 12
		}
	default:
		if h > 24 || (h == 24 && m > 0) {
			return 0, false
		}
	}
	return h*60 + m, true
}

// ParseClock parses "HHMM" or "HH:MM" into minutes since midnight. "2400" is
// accepted as end of day.
func ParseClock(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	if len(s) != 4 {
		return 0, fmt.Errorf("parsing clock %q: want HHMM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("parsing clock hour %q: %w", s, err)
	}
	m, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, fmt.Errorf("parsing clock minute %q: %w", s, err)
	}
	minutes, ok := toMinutes(h, m, "")
	if !ok {
		return 0, fmt.Errorf("parsing clock %q: out of range", s)
	}
	return minutes, nil
}
