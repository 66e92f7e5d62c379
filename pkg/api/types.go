package api

import (
	"context"

	"github.com/carverauto/downtimeradar/pkg/core"
	"github.com/carverauto/downtimeradar/pkg/models"
)

type reportFunc func(ctx context.Context, n int) (*core.MetricsReport, error)

type errorResponse struct {
	Error  string `json:"error"`
	Column string `json:"column,omitempty"`
}

type weeksResponse struct {
	Weeks   []models.SnapshotSummary `json:"weeks"`
	Skipped []models.SkippedEntry    `json:"skipped,omitempty"`
}
