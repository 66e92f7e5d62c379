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

// Package snapshot persists weekly downtime snapshots keyed by week number.
package snapshot

//go:generate mockgen -destination=mock_store.go -package=snapshot github.com/carverauto/downtimeradar/pkg/snapshot Store

import (
	"context"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// Store defines persistence for weekly snapshots. There is at most one
// snapshot per week; saving a week again replaces it.
type Store interface {
	// Save writes the snapshot and reports whether anything was written.
	// Snapshots without events are not persisted.
	Save(ctx context.Context, snap *models.WeeklySnapshot) (bool, error)
	// Get returns the snapshot for one week or ErrSnapshotNotFound.
	Get(ctx context.Context, week int) (*models.WeeklySnapshot, error)
	// LoadRecent returns up to maxCount snapshots with the highest week
	// numbers, newest first. Unreadable entries are skipped and reported.
	// A maxCount of zero or less loads everything.
	LoadRecent(ctx context.Context, maxCount int) (*models.SnapshotSet, error)
	// ClearAll removes every stored snapshot.
	ClearAll(ctx context.Context) error
	Close() error
}
