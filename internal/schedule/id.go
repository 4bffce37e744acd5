package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Key holds the inputs a game id is derived from
type Key struct {
	League string
	Away   string
	Home   string
	Date   string // ISO date when known, else the raw header text
	Time   string // optional kickoff or tip-off time; empty leaves it out of the id
}

var clockRe = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*([ap])?\.?\s*(m\.?)?`)

// BuildID derives the stable id for a game:
//
//	<LEAGUE>_<Away>_vs_<Home>_<datekey>[_<timekey>]
//
// datekey is YYYYMMDD for ISO dates and the lower-cased alphanumerics of anything else.
// timekey is HHMM and only appears when Time parses as a clock time.
func BuildID(k Key) (string, error) {
	league := strings.ToUpper(alnum(k.League))
	away := alnum(k.Away)
	home := alnum(k.Home)
	date := dateToken(k.Date)

	switch {
	case league == "":
		return "", missing("league")
	case away == "":
		return "", missing("away_team")
	case home == "":
		return "", missing("home_team")
	case date == "":
		return "", missing("date")
	}

	id := fmt.Sprintf("%s_%s_vs_%s_%s", league, away, home, date)
	if clock, ok := ParseClock(k.Time); ok {
		id += "_" + clock
	}
	return id, nil
}

// DuplicateID returns the id used for the nth game (n >= 2) sharing base within one run
func DuplicateID(base string, n int) string {
	if n < 2 {
		return base
	}
	return base + "_g" + strconv.Itoa(n)
}

// ParseClock converts "7:30 pm", "19:30", "3pm" or "3:00 PM ET" into "HHMM".
// A bare number without a colon or am/pm marker is not treated as a time.
func ParseClock(text string) (string, bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	hasMinutes := m[2] != ""
	meridiem := strings.ToLower(m[3])
	if meridiem != "" && m[4] == "" {
		return "", false
	}
	if !hasMinutes && meridiem == "" {
		return "", false
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if hasMinutes {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return "", false
	}

	switch meridiem {
	case "":
		if hour > 23 {
			return "", false
		}
	default:
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "p" {
			hour += 12
		}
	}
	return fmt.Sprintf("%02d%02d", hour, minute), true
}

func dateToken(date string) string {
	date = strings.Join(strings.Fields(date), "")
	if len(date) == 10 && date[4] == '-' && date[7] == '-' {
		if digits := strings.ReplaceAll(date, "-", ""); isDigits(digits) {
			return digits
		}
	}
	return strings.ToLower(alnum(date))
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
