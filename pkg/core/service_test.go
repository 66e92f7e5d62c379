package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/reliability"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

const weekTen = `Type Of Failure,Down Time,Delay Time,Machine,Microstop Description
KIT-JOINT,00:15:00,00:03:00,KOMAX 7,joint absent
DEMARRAGE PARC,01:00:00,,,
MARQUAGE,00:05:00,,KOMAX 2,
`

func testOptions(reg prometheus.Registerer) *Options {
	normalizer := ingest.DefaultOptions()
	normalizer.Year = 2025

	return &Options{
		Table:      ingest.TableOptions{FirstColumn: "A"},
		Normalizer: normalizer,
		Registerer: reg,
	}
}

func csvUpload(week int, openTime float64, body string) *IngestRequest {
	return &IngestRequest{
		Filename: "week.csv",
		Body:     strings.NewReader(body),
		Week:     week,
		OpenTime: openTime,
	}
}

func TestIngestSavesWeek(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	svc := NewService(snapshot.NewMemoryStore(), testOptions(reg))

	changes, cancel := svc.Subscribe()
	defer cancel()

	report, err := svc.Ingest(ctx, csvUpload(10, 100, weekTen))
	require.NoError(t, err)

	assert.True(t, report.Saved)
	assert.Equal(t, 1, report.EventCount)
	assert.Equal(t, "2025-03", report.Month)
	require.NotNil(t, report.Metrics)
	assert.InDelta(t, 99.75, report.Metrics.MTBF, 1e-9)
	assert.InDelta(t, 0.25, report.Metrics.MTTR, 1e-9)
	assert.InDelta(t, 99.75, report.Metrics.AvailabilityPct, 1e-9)

	select {
	case ev := <-changes:
		assert.Equal(t, models.ChangeSnapshotSaved, ev.Kind)
		assert.Equal(t, 10, ev.Week)
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}

	snap, err := svc.Snapshot(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "KOMAX 7", snap.Events[0].Machine)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.ingested.WithLabelValues(resultSaved)))
}

func TestIngestMissingColumnLeavesStoreUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := snapshot.NewMockStore(ctrl)
	svc := NewService(store, testOptions(nil))

	_, err := svc.Ingest(context.Background(), csvUpload(3, 40, "Machine,Down Time\nKOMAX 1,00:10:00\n"))
	require.Error(t, err)

	var missing *ingest.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ingest.FieldFailureType, missing.Column)
}

func TestIngestEmptyAfterFiltering(t *testing.T) {
	svc := NewService(snapshot.NewMemoryStore(), testOptions(nil))

	report, err := svc.Ingest(context.Background(), csvUpload(4, 40, "Type Of Failure,Down Time\nDEMARRAGE PARC,01:00:00\n"))
	require.NoError(t, err)
	assert.False(t, report.Saved)
	assert.Nil(t, report.Metrics)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, ingest.WarnEmptyAfterFiltering, report.Warnings[0].Code)

	set, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, set.Snapshots)
}

func TestIngestRejectsUnsupportedFormat(t *testing.T) {
	svc := NewService(snapshot.NewMemoryStore(), testOptions(nil))

	_, err := svc.Ingest(context.Background(), &IngestRequest{Filename: "week.txt", Body: strings.NewReader(""), Week: 1, OpenTime: 1})
	require.ErrorIs(t, err, ingest.ErrUnsupportedFormat)
}

func seed(t *testing.T, store snapshot.Store, week int, month string, openTime float64, downs ...float64) {
	t.Helper()

	snap := &models.WeeklySnapshot{Week: week, OpenTime: openTime, Month: month}
	for _, d := range downs {
		snap.Events = append(snap.Events, models.DowntimeEvent{
			FailureType: "KIT-JOINT",
			Machine:     "KOMAX 1",
			DownTime:    models.KnownHours(d),
		})
	}

	_, err := store.Save(context.Background(), snap)
	require.NoError(t, err)
}

func TestWeeklyMetrics(t *testing.T) {
	store := snapshot.NewMemoryStore()
	seed(t, store, 1, "2025-01", 100, 1, 1)
	seed(t, store, 2, "2025-01", 100, 10)

	svc := NewService(store, testOptions(nil))

	report, err := svc.WeeklyMetrics(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "Week 2", report.Rows[0].Period)
	assert.InDelta(t, 90, report.Rows[0].AvailabilityPct, 1e-9)
	assert.Equal(t, models.BandCritical, report.Rows[0].Status.Availability)

	assert.Equal(t, "Week 1", report.Rows[1].Period)
	assert.InDelta(t, 49, report.Rows[1].MTBF, 1e-9)
	assert.Equal(t, models.BandOK, report.Rows[1].Status.Availability)

	assert.InDelta(t, 94, report.RollingAvailabilityPct, 1e-9)
	assert.Equal(t, 4, report.RollingWindow)
}

func TestMonthlyMetrics(t *testing.T) {
	store := snapshot.NewMemoryStore()
	seed(t, store, 3, "2025-01", 100, 1)
	seed(t, store, 4, "2025-01", 100, 1)
	seed(t, store, 5, "2025-02", 50, 5)

	svc := NewService(store, testOptions(nil))

	report, err := svc.MonthlyMetrics(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "2025-02", report.Rows[0].Period)
	assert.InDelta(t, 90, report.Rows[0].AvailabilityPct, 1e-9)

	jan := report.Rows[1]
	assert.Equal(t, "2025-01", jan.Period)
	assert.InDelta(t, 200, jan.OpenTime, 1e-9)
	assert.Equal(t, 2, jan.EventCount)
	assert.InDelta(t, 99, jan.AvailabilityPct, 1e-9)
}

func TestRecentIsCachedUntilChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := snapshot.NewMockStore(ctrl)
	svc := NewService(store, testOptions(nil))

	set := &models.SnapshotSet{
		Snapshots: []models.WeeklySnapshot{{Week: 2, OpenTime: 10, Month: "2025-01"}},
		Skipped:   []models.SkippedEntry{{Name: "week_1.snap", Week: 1, Reason: "corrupt"}},
	}

	gomock.InOrder(
		store.EXPECT().LoadRecent(gomock.Any(), 12).Return(set, nil).Times(1),
		store.EXPECT().ClearAll(gomock.Any()).Return(nil),
		store.EXPECT().LoadRecent(gomock.Any(), 12).Return(&models.SnapshotSet{}, nil).Times(1),
	)

	first, err := svc.Recent(ctx, 0)
	require.NoError(t, err)

	second, err := svc.WeeklyMetrics(ctx, 12)
	require.NoError(t, err)
	assert.Same(t, first, set)
	assert.Len(t, second.Skipped, 1)

	require.NoError(t, svc.Reset(ctx))

	after, err := svc.Recent(ctx, 12)
	require.NoError(t, err)
	assert.Empty(t, after.Snapshots)
}

func TestRecentDropsSetLoadedAcrossInvalidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := snapshot.NewMockStore(ctrl)
	svc := NewService(store, testOptions(nil))

	stale := &models.SnapshotSet{}
	fresh := &models.SnapshotSet{
		Snapshots: []models.WeeklySnapshot{{Week: 3, OpenTime: 10, Month: "2025-01"}},
	}

	gomock.InOrder(
		store.EXPECT().LoadRecent(gomock.Any(), 12).DoAndReturn(
			func(context.Context, int) (*models.SnapshotSet, error) {
				// a save lands while the window is being read
				svc.invalidate()

				return stale, nil
			}),
		store.EXPECT().LoadRecent(gomock.Any(), 12).Return(fresh, nil),
	)

	first, err := svc.Recent(ctx, 12)
	require.NoError(t, err)
	assert.Same(t, stale, first)

	second, err := svc.Recent(ctx, 12)
	require.NoError(t, err)
	assert.Same(t, fresh, second)

	third, err := svc.Recent(ctx, 12)
	require.NoError(t, err)
	assert.Same(t, fresh, third)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := snapshot.NewMockStore(ctrl)
	svc := NewService(store, testOptions(nil))

	boom := errors.New("disk gone")

	store.EXPECT().LoadRecent(gomock.Any(), 5).Return(nil, boom)
	store.EXPECT().ClearAll(gomock.Any()).Return(boom)

	_, err := svc.WeeklyMetrics(ctx, 5)
	require.ErrorIs(t, err, errLoadWindow)
	require.ErrorIs(t, err, boom)

	err = svc.Reset(ctx)
	require.ErrorIs(t, err, errReset)
}

func TestWeekViews(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()

	_, err := store.Save(ctx, &models.WeeklySnapshot{
		Week:     7,
		OpenTime: 100,
		Month:    "2025-02",
		Events: []models.DowntimeEvent{
			{FailureType: "KIT-JOINT", Machine: "KOMAX 1", DownTime: models.KnownHours(1), DelayTime: models.KnownHours(0.25), SubDefect: "joint absent"},
			{FailureType: "MARQUAGE", Machine: "KOMAX 2", DownTime: models.KnownHours(0.1), SubDefect: "encre"},
			{FailureType: "kit-joint", Machine: "PRESS 1", DownTime: models.KnownHours(0.5), SubDefect: "joint absent"},
		},
	})
	require.NoError(t, err)

	svc := NewService(store, testOptions(nil))

	pareto, err := svc.Pareto(ctx, 7, reliability.GroupOptions{Key: reliability.ByFailureType, Measure: reliability.MeasureDowntime})
	require.NoError(t, err)
	require.Len(t, pareto, 2)
	assert.Equal(t, "KIT-JOINT", pareto[0].Group)
	assert.InDelta(t, 1.5, pareto[0].Value, 1e-9)

	stops, err := svc.Stops(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stops.MicroStopCount)
	assert.Equal(t, 2, stops.MacroStopCount)

	machines, err := svc.Machines(ctx, 7, "")
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "KOMAX 1", machines[0].Machine)

	components, err := svc.Components(ctx, 7, reliability.MeasureDowntime)
	require.NoError(t, err)
	require.Len(t, components, 2)

	top, err := svc.TopFailures(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Week 7", top[0].Period)
	require.Len(t, top[0].Top, 1)

	_, err = svc.Stops(ctx, 8)
	require.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	svc := NewService(snapshot.NewMemoryStore(), testOptions(nil))

	ch, cancel := svc.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	require.NoError(t, svc.Reset(context.Background()))
}
