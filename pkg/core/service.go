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

package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/carverauto/downtimeradar/pkg/config"
	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/period"
	"github.com/carverauto/downtimeradar/pkg/reliability"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

const (
	subscriberBuffer = 16

	resultSaved    = "saved"
	resultEmpty    = "empty"
	resultRejected = "rejected"
)

// Service ties the normalizer, the snapshot store and the metrics engine
// together. It assumes a single writer: the cache and subscriber list are
// locked so concurrent HTTP readers are safe, but two processes sharing one
// store are not coordinated.
type Service struct {
	store      snapshot.Store
	normalizer *ingest.Normalizer
	table      ingest.TableOptions
	analysis   config.AnalysisConfig
	objectives models.Objectives
	metrics    *serviceMetrics
	now        func() time.Time

	mu    sync.RWMutex
	cache map[int]*models.SnapshotSet
	gen   uint64 // bumped by invalidate

	subMu       sync.Mutex
	subscribers map[int]chan models.ChangeEvent
	nextSub     int
}

var _ DowntimeService = (*Service)(nil)

// NewService builds a Service on top of store.
func NewService(store snapshot.Store, opts *Options) *Service {
	defaults := config.DefaultServerConfig().Analysis
	analysis := opts.Analysis

	if analysis.DefaultWeeks <= 0 {
		analysis.DefaultWeeks = defaults.DefaultWeeks
	}

	if analysis.TopN <= 0 {
		analysis.TopN = defaults.TopN
	}

	if analysis.RollingWeeks <= 0 {
		analysis.RollingWeeks = defaults.RollingWeeks
	}

	if analysis.MachineFamily == "" {
		analysis.MachineFamily = defaults.MachineFamily
	}

	if analysis.TrackedComponents == nil {
		analysis.TrackedComponents = defaults.TrackedComponents
	}

	objectives := opts.Objectives
	if objectives == (models.Objectives{}) {
		objectives = reliability.DefaultObjectives
	}

	return &Service{
		store:       store,
		normalizer:  ingest.NewNormalizer(opts.Normalizer),
		table:       opts.Table,
		analysis:    analysis,
		objectives:  objectives,
		metrics:     newServiceMetrics(opts.Registerer),
		now:         time.Now,
		cache:       make(map[int]*models.SnapshotSet),
		subscribers: make(map[int]chan models.ChangeEvent),
	}
}

// Ingest reads, normalizes and stores one weekly extract. A missing required
// column is returned as an error; an extract with nothing left after
// filtering yields a report with Saved=false.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*IngestReport, error) {
	table, err := ingest.ReadTable(req.Filename, req.Body, s.table)
	if err != nil {
		s.metrics.recordIngest(resultRejected)

		return nil, fmt.Errorf("%w %s: %w", errReadUpload, req.Filename, err)
	}

	res, err := s.normalizer.Normalize(table, req.Week, req.OpenTime)
	if err != nil {
		s.metrics.recordIngest(resultRejected)

		return nil, err
	}

	for _, w := range res.Warnings {
		if w.Code == ingest.WarnTimeParseFallback {
			s.metrics.timeFallbacks.Add(float64(w.Count))
		}
	}

	snap := &models.WeeklySnapshot{
		Week:     req.Week,
		OpenTime: req.OpenTime,
		Month:    res.Month,
		SavedAt:  s.now(),
		Events:   res.Events,
	}

	saved, err := s.store.Save(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSaveSnapshot, err)
	}

	report := &IngestReport{
		Week:            req.Week,
		Month:           res.Month,
		Saved:           saved,
		EventCount:      len(res.Events),
		DroppedExcluded: res.DroppedExcluded,
		DroppedMissing:  res.DroppedMissing,
		Warnings:        res.Warnings,
	}

	if !saved {
		s.metrics.recordIngest(resultEmpty)
		log.WithField("week", req.Week).Warn("nothing to save after filtering")

		return report, nil
	}

	row := reliability.Compute(snap)
	report.Metrics = &row

	s.metrics.recordIngest(resultSaved)
	s.invalidate()
	s.publish(models.ChangeEvent{Kind: models.ChangeSnapshotSaved, Week: req.Week, Timestamp: s.now()})

	log.WithFields(log.Fields{
		"file":   req.Filename,
		"week":   req.Week,
		"events": len(res.Events),
	}).Info("ingested weekly extract")

	return report, nil
}

// Recent returns the n most recent snapshots; n <= 0 uses the configured
// default window. The returned set is shared and must not be modified.
func (s *Service) Recent(ctx context.Context, n int) (*models.SnapshotSet, error) {
	if n <= 0 {
		n = s.analysis.DefaultWeeks
	}

	s.mu.RLock()
	set, ok := s.cache[n]
	gen := s.gen
	s.mu.RUnlock()

	if ok {
		return set, nil
	}

	set, err := s.store.LoadRecent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLoadWindow, err)
	}

	s.metrics.skipped.Add(float64(len(set.Skipped)))
	s.metrics.storedWeeks.Set(float64(len(set.Snapshots)))

	// A save or delete that landed during the load makes this set stale.
	s.mu.Lock()
	if s.gen == gen {
		s.cache[n] = set
	}
	s.mu.Unlock()

	return set, nil
}

func (s *Service) Snapshot(ctx context.Context, week int) (*models.WeeklySnapshot, error) {
	return s.store.Get(ctx, week)
}

// WeeklyMetrics computes one row per stored week, most recent first.
func (s *Service) WeeklyMetrics(ctx context.Context, n int) (*MetricsReport, error) {
	set, err := s.Recent(ctx, n)
	if err != nil {
		return nil, err
	}

	return s.report(reliability.ComputeAll(set.Snapshots), set.Skipped), nil
}

// MonthlyMetrics regroups the n most recent weeks by month bucket.
func (s *Service) MonthlyMetrics(ctx context.Context, n int) (*MetricsReport, error) {
	set, err := s.Recent(ctx, n)
	if err != nil {
		return nil, err
	}

	months := period.AggregateByMonth(set.Snapshots)
	keys := period.SortedMonthKeys(months)

	aggregates := make([]models.MonthlyAggregate, 0, len(keys))
	for _, k := range keys {
		aggregates = append(aggregates, *months[k])
	}

	return s.report(reliability.ComputeAll(aggregates), set.Skipped), nil
}

func (s *Service) report(rows []models.MetricsRow, skipped []models.SkippedEntry) *MetricsReport {
	r := &MetricsReport{
		Rows:          make([]MetricsEntry, 0, len(rows)),
		RollingWindow: s.analysis.RollingWeeks,
		Objectives:    s.objectives,
		Skipped:       skipped,
	}

	for i := range rows {
		r.Rows = append(r.Rows, MetricsEntry{
			MetricsRow: rows[i],
			Status:     reliability.Evaluate(&rows[i], s.objectives),
		})
	}

	r.RollingAvailabilityPct = reliability.RollingAvailability(rows, s.analysis.RollingWeeks)

	return r
}

// Pareto ranks one week's events.
func (s *Service) Pareto(ctx context.Context, week int, opts reliability.GroupOptions) ([]models.RankedGroup, error) {
	snap, err := s.store.Get(ctx, week)
	if err != nil {
		return nil, err
	}

	return reliability.GroupAndRank(snap.Events, opts), nil
}

// Stops splits one week's downtime into micro and macro stops.
func (s *Service) Stops(ctx context.Context, week int) (*models.StopBreakdown, error) {
	snap, err := s.store.Get(ctx, week)
	if err != nil {
		return nil, err
	}

	b := reliability.SplitStops(snap.Events)

	return &b, nil
}

// Machines returns per-machine indicators; an empty family uses the configured one.
func (s *Service) Machines(ctx context.Context, week int, family string) ([]models.MachineIndicator, error) {
	snap, err := s.store.Get(ctx, week)
	if err != nil {
		return nil, err
	}

	if family == "" {
		family = s.analysis.MachineFamily
	}

	return reliability.MachineIndicators(snap.Events, family), nil
}

// Components ranks sub-defects of the tracked components for one week.
func (s *Service) Components(ctx context.Context, week int, measure reliability.Measure) ([]models.ComponentPareto, error) {
	snap, err := s.store.Get(ctx, week)
	if err != nil {
		return nil, err
	}

	return reliability.ComponentParetos(snap.Events, s.analysis.TrackedComponents, measure), nil
}

// TopFailures lists the top failure types of each of the n most recent weeks.
func (s *Service) TopFailures(ctx context.Context, n, top int) ([]models.PeriodTop, error) {
	set, err := s.Recent(ctx, n)
	if err != nil {
		return nil, err
	}

	if top <= 0 {
		top = s.analysis.TopN
	}

	return reliability.TopByPeriod(set.Snapshots, top), nil
}

// Reset removes every stored snapshot.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("%w: %w", errReset, err)
	}

	s.invalidate()
	s.publish(models.ChangeEvent{Kind: models.ChangeStoreReset, Timestamp: s.now()})

	log.Info("snapshot store reset")

	return nil
}

// Subscribe returns a channel of store changes and a function that ends the
// subscription. Slow subscribers miss events rather than block writers.
func (s *Service) Subscribe() (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent, subscriberBuffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

func (s *Service) publish(ev models.ChangeEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			log.WithField("subscriber", id).Warn("dropping change event for slow subscriber")
		}
	}
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.cache = make(map[int]*models.SnapshotSet)
	s.gen++
	s.mu.Unlock()
}
