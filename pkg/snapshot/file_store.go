/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/carverauto/downtimeradar/pkg/models"
)

const (
	snapshotExt = ".snap"
	tempPattern = "week_*.tmp"
	dirPerm     = 0o755
)

var snapshotName = regexp.MustCompile(`^week_(.+)\.snap$`)

// FileStore keeps one file per week in a directory. Writes go to a temporary
// file that is renamed into place, so a reader never sees a partial snapshot.
type FileStore struct {
	mu  sync.Mutex
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewFileStore creates dir if needed.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	if err := fsys.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	return &FileStore{fs: fsys, dir: dir, now: time.Now}, nil
}

func (s *FileStore) path(week int) string {
	return filepath.Join(s.dir, fmt.Sprintf("week_%d%s", week, snapshotExt))
}

func (s *FileStore) Save(_ context.Context, snap *models.WeeklySnapshot) (bool, error) {
	if err := validate(snap); err != nil {
		return false, err
	}

	if len(snap.Events) == 0 {
		return false, nil
	}

	data := encodeSnapshot(prepare(snap, s.now))

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := afero.TempFile(s.fs, s.dir, tempPattern)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errSaveSnapshot, err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = s.fs.Rename(tmpName, s.path(snap.Week))
	}

	if err != nil {
		if rmErr := s.fs.Remove(tmpName); rmErr != nil {
			log.WithError(rmErr).Warn("failed to remove temporary snapshot")
		}

		return false, fmt.Errorf("%w: week %d: %w", errSaveSnapshot, snap.Week, err)
	}

	log.WithFields(log.Fields{"week": snap.Week, "events": len(snap.Events)}).Info("saved weekly snapshot")

	return true, nil
}

func (s *FileStore) Get(_ context.Context, week int) (*models.WeeklySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(week)
}

func (s *FileStore) read(week int) (*models.WeeklySnapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path(week))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: week %d", ErrSnapshotNotFound, week)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: week %d: %w", errLoadSnapshot, week, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	if snap.Week != week {
		return nil, fmt.Errorf("%w: file holds week %d", ErrCorruptSnapshot, snap.Week)
	}

	return snap, nil
}

func (s *FileStore) LoadRecent(_ context.Context, maxCount int) (*models.SnapshotSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListSnapshots, err)
	}

	set := &models.SnapshotSet{Snapshots: []models.WeeklySnapshot{}}
	weeks := make([]int, 0, len(infos))

	for _, info := range infos {
		m := snapshotName.FindStringSubmatch(info.Name())
		if info.IsDir() || m == nil {
			continue
		}

		week, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			set.Skipped = append(set.Skipped, models.SkippedEntry{Name: info.Name(), Reason: "week number not readable"})

			continue
		}

		// Only the name Save writes is read back, so week_07.snap cannot shadow week_7.snap.
		if info.Name() != filepath.Base(s.path(week)) {
			set.Skipped = append(set.Skipped, models.SkippedEntry{Name: info.Name(), Week: week, Reason: "not a canonical snapshot name"})

			continue
		}

		weeks = append(weeks, week)
	}

	var readErrs error

	for _, week := range recentWeeks(weeks, maxCount) {
		snap, readErr := s.read(week)
		if readErr != nil {
			readErrs = multierr.Append(readErrs, readErr)

			set.Skipped = append(set.Skipped, models.SkippedEntry{
				Name:   filepath.Base(s.path(week)),
				Week:   week,
				Reason: readErr.Error(),
			})

			continue
		}

		set.Snapshots = append(set.Snapshots, *snap)
	}

	if readErrs != nil {
		log.WithError(readErrs).WithField("skipped", len(set.Skipped)).Warn("skipped unreadable snapshots")
	}

	return set, nil
}

func (s *FileStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", errClearStore, err)
	}

	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !(snapshotName.MatchString(name) || strings.HasSuffix(name, ".tmp")) {
			continue
		}

		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("%w: %w", errClearStore, err)
		}
	}

	log.WithField("dir", s.dir).Info("cleared snapshot store")

	return nil
}

func (*FileStore) Close() error {
	return nil
}
