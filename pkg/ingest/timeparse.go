package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/carverauto/downtimeradar/pkg/models"
)

const (
	minutesPerHour = 60
	secondsPerHour = 3600
	hourDecimals   = 2
)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2}):(\d{1,2})$`)

// ParseClockHours converts "HH:MM:SS" into decimal hours rounded to two
// decimals. Only time-of-day values (hours 0-23) are accepted.
func ParseClockHours(s string) (float64, bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}

	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])

	if h > 23 || mins >= minutesPerHour || secs >= minutesPerHour {
		return 0, false
	}

	v := float64(h) + float64(mins)/minutesPerHour + float64(secs)/secondsPerHour

	rounded, err := stats.Round(v, hourDecimals)
	if err != nil {
		return 0, false
	}

	return rounded, true
}

// timeColumn converts one column of cells to hours and remembers which cells
// needed the numeric fallback.
type timeColumn struct {
	name      string
	fallbacks int
	example   string
}

func (c *timeColumn) parse(cell string) models.Hours {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return models.MissingHours
	}

	if v, ok := ParseClockHours(cell); ok {
		return models.KnownHours(v)
	}

	c.fallbacks++
	if c.example == "" {
		c.example = cell
	}

	if !strings.Contains(cell, ".") {
		cell = strings.Replace(cell, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return models.MissingHours
	}

	return models.KnownHours(v)
}

func (c *timeColumn) warning() (Warning, bool) {
	if c.fallbacks == 0 {
		return Warning{}, false
	}

	return Warning{
		Code:    WarnTimeParseFallback,
		Column:  c.name,
		Count:   c.fallbacks,
		Example: c.example,
	}, true
}
