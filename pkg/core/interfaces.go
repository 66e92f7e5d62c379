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

// Package core pkg/core/interfaces.go
package core

import (
	"context"

	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/reliability"
)

// DowntimeService is the operation set exposed to the API and the CLI.
type DowntimeService interface {
	Ingest(ctx context.Context, req *IngestRequest) (*IngestReport, error)
	Recent(ctx context.Context, n int) (*models.SnapshotSet, error)
	Snapshot(ctx context.Context, week int) (*models.WeeklySnapshot, error)
	WeeklyMetrics(ctx context.Context, n int) (*MetricsReport, error)
	MonthlyMetrics(ctx context.Context, n int) (*MetricsReport, error)
	Pareto(ctx context.Context, week int, opts reliability.GroupOptions) ([]models.RankedGroup, error)
	Stops(ctx context.Context, week int) (*models.StopBreakdown, error)
	Machines(ctx context.Context, week int, family string) ([]models.MachineIndicator, error)
	Components(ctx context.Context, week int, measure reliability.Measure) ([]models.ComponentPareto, error)
	TopFailures(ctx context.Context, n, top int) ([]models.PeriodTop, error)
	Reset(ctx context.Context) error
	Subscribe() (<-chan models.ChangeEvent, func())
}
