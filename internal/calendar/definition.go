package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a calendar declaration.
//
// Sessions are derived, not listed: every date in [Start, End] that is
// neither a weekend day nor a listed holiday is a session. This keeps the
// declarations small and reviewable; exchanges with irregular schedules can
// list the exceptions as holidays.
type Definition struct {
	// Name uniquely identifies the calendar, e.g. "NYSE".
	Name string `yaml:"name"`

	// Timezone is the IANA timezone of the exchange.
	Timezone string `yaml:"timezone"`

	// Open and Close are local wall-clock times in "HH:MM" form.
	Open  string `yaml:"open"`
	Close string `yaml:"close"`

	// Weekend lists non-trading weekdays by English name.
	Weekend []string `yaml:"weekend"`

	// Start and End bound the covered range, in "2006-01-02" form,
	// inclusive.
	Start string `yaml:"start"`
	End   string `yaml:"end"`

	// Holidays lists non-trading dates inside the covered range.
	Holidays []string `yaml:"holidays,omitempty"`
}

// ParseDefinition decodes a YAML calendar definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse calendar definition: %w", err)
	}
	return &def, nil
}

// LoadDefinition reads and decodes a YAML calendar definition from a file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar definition: %w", err)
	}
	return ParseDefinition(data)
}

// Build materializes the definition into a Calendar, enumerating every
// session in the covered range.
func (d *Definition) Build() (*Calendar, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("calendar definition: name is required")
	}
	if d.Timezone == "" {
		return nil, fmt.Errorf("calendar %s: timezone is required", d.Name)
	}
	open, err := parseClock(d.Open)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: open: %w", d.Name, err)
	}
	closeT, err := parseClock(d.Close)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: close: %w", d.Name, err)
	}
	start, err := parseDate(d.Start)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: start: %w", d.Name, err)
	}
	end, err := parseDate(d.End)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: end: %w", d.Name, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("calendar %s: end %s precedes start %s", d.Name, d.End, d.Start)
	}

	weekend := make(map[time.Weekday]bool, len(d.Weekend))
	for _, name := range d.Weekend {
		wd, ok := weekdayByName[name]
		if !ok {
			return nil, fmt.Errorf("calendar %s: unknown weekday %q", d.Name, name)
		}
		weekend[wd] = true
	}

	holidays := make(map[int64]bool, len(d.Holidays))
	for _, h := range d.Holidays {
		date, err := parseDate(h)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: holiday: %w", d.Name, err)
		}
		holidays[dayKey(date)] = true
	}

	var sessions []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if weekend[day.Weekday()] || holidays[dayKey(day)] {
			continue
		}
		sessions = append(sessions, day)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("calendar %s: no sessions in range %s..%s", d.Name, d.Start, d.End)
	}

	return newCalendar(d.Name, d.Timezone, open, closeT, sessions), nil
}

var weekdayByName = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// parseClock parses an "HH:MM" wall-clock time into an offset from
// midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want %s)", s, DateLayout)
	}
	return t, nil
}
