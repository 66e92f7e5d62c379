package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"

	defaultDataDir = "weekly_data"

	minWeek = 1
	maxWeek = 52
)

// Config selects and locates the snapshot store.
type Config struct {
	Backend Backend `json:"backend"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `json:"path"`
}

// Validate checks the backend name and fills the default path.
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}

	switch c.Backend {
	case BackendFile:
		if c.Path == "" {
			c.Path = defaultDataDir
		}
	case BackendSQLite:
		if c.Path == "" {
			c.Path = defaultDataDir + ".db"
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	return nil
}

// validate rejects snapshots that could never be read back meaningfully.
func validate(snap *models.WeeklySnapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}

	if snap.Week < minWeek || snap.Week > maxWeek {
		return fmt.Errorf("%w: week %d", ErrInvalidSnapshot, snap.Week)
	}

	if !(snap.OpenTime > 0) {
		return fmt.Errorf("%w: open time %v", ErrInvalidSnapshot, snap.OpenTime)
	}

	return nil
}

// prepare copies snap for storage and stamps the save time.
func prepare(snap *models.WeeklySnapshot, now func() time.Time) *models.WeeklySnapshot {
	c := snap.Clone()
	if c.SavedAt.IsZero() {
		c.SavedAt = now()
	}

	c.SavedAt = c.SavedAt.UTC().Round(0)

	for i := range c.Events {
		c.Events[i].Week = c.Week
		c.Events[i].Month = c.Month
	}

	return c
}

// recentWeeks orders weeks newest first and keeps at most maxCount.
func recentWeeks(weeks []int, maxCount int) []int {
	sort.Sort(sort.Reverse(sort.IntSlice(weeks)))

	if maxCount > 0 && len(weeks) > maxCount {
		weeks = weeks[:maxCount]
	}

	return weeks
}
