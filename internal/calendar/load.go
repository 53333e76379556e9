package calendar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/debtflow/platform/internal/shared/config"
	"gopkg.in/yaml.v3"
)

// fileFormat is the YAML shape of a calendar definition file.
type fileFormat struct {
	DayStartHour int      `yaml:"day_start_hour"`
	DayEndHour   int      `yaml:"day_end_hour"`
	WorkingDays  []string `yaml:"working_days"`
	Holidays     []string `yaml:"holidays"` // 2006-01-02
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load builds a calendar from configuration. An empty path returns the
// built-in default calendar.
func Load(cfg config.CalendarConfig) (Calendar, error) {
	cal := Default()
	if cfg.MaxWalkDays > 0 {
		cal.MaxWalkDays = cfg.MaxWalkDays
	}
	if cfg.Path == "" {
		return cal, nil
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return cal, fmt.Errorf("failed to read calendar file: %w", err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return cal, fmt.Errorf("failed to parse calendar file: %w", err)
	}

	return fromFile(ff, cal)
}

func fromFile(ff fileFormat, base Calendar) (Calendar, error) {
	cal := base

	if ff.DayStartHour != 0 || ff.DayEndHour != 0 {
		if ff.DayStartHour < 0 || ff.DayEndHour > 24 || ff.DayStartHour >= ff.DayEndHour {
			return cal, fmt.Errorf("invalid workday bounds %d-%d", ff.DayStartHour, ff.DayEndHour)
		}
		cal.DayStartHour = ff.DayStartHour
		cal.DayEndHour = ff.DayEndHour
	}

	if len(ff.WorkingDays) > 0 {
		days := make(map[time.Weekday]bool, len(ff.WorkingDays))
		for _, name := range ff.WorkingDays {
			day, ok := weekdayNames[strings.ToLower(name)]
			if !ok {
				return cal, fmt.Errorf("unknown weekday %q", name)
			}
			days[day] = true
		}
		cal.WorkingDays = days
	}

	if len(ff.Holidays) > 0 {
		holidays := make(map[string]bool, len(ff.Holidays))
		for _, h := range ff.Holidays {
			if _, err := time.Parse("2006-01-02", h); err != nil {
				return cal, fmt.Errorf("invalid holiday date %q: %w", h, err)
			}
			holidays[h] = true
		}
		cal.Holidays = holidays
	}

	return cal, nil
}
