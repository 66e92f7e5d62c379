package config

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/reliability"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

const (
	defaultListenAddr      = ":8090"
	defaultGrpcAddr        = ":50060"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 10 * time.Second
	defaultWeeks           = 12
	defaultMachineFamily   = "KOMAX"
	defaultTopN            = 3
	defaultRollingWeeks    = 4
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ServerConfig is the configuration shared by downtime-server and downtimectl.
type ServerConfig struct {
	ListenAddr      string            `json:"listen_addr"`
	GrpcAddr        string            `json:"grpc_addr,omitempty"`
	LogLevel        string            `json:"log_level"`
	ShutdownTimeout Duration          `json:"shutdown_timeout"`
	Store           snapshot.Config   `json:"store"`
	Ingest          IngestConfig      `json:"ingest"`
	Analysis        AnalysisConfig    `json:"analysis"`
	Objectives      models.Objectives `json:"objectives"`
	RateLimit       RateLimitConfig   `json:"rate_limit"`
}

// IngestConfig locates the data block in uploaded extracts and tunes cleaning.
type IngestConfig struct {
	HeaderRow            *int                 `json:"header_row,omitempty"` // zero-based, 9 = spreadsheet row 10
	FirstColumn          string               `json:"first_column"`
	LastColumn           string               `json:"last_column"`
	Sheet                string               `json:"sheet,omitempty"`
	Strict               *bool                `json:"strict,omitempty"`
	ExcludedFailureTypes []string             `json:"excluded_failure_types,omitempty"` // added to the defaults
	ColumnAliases        ingest.ColumnAliases `json:"column_aliases,omitempty"`
	Year                 int                  `json:"year,omitempty"` // 0 = current year
}

// AnalysisConfig holds the defaults of the analysis views.
type AnalysisConfig struct {
	DefaultWeeks      int      `json:"default_weeks"`
	MachineFamily     string   `json:"machine_family"`
	TrackedComponents []string `json:"tracked_components"`
	TopN              int      `json:"top_n"`
	RollingWeeks      int      `json:"rolling_weeks"`
}

// RateLimitConfig throttles mutating API routes. Zero disables the limit.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// DefaultTrackedComponents are the failure types with a sub-defect breakdown.
var DefaultTrackedComponents = []string{"MARQUAGE", "KIT-JOINT", "MINI-APPLICATEUR"}

// DefaultServerConfig returns a configuration with every default applied.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.ApplyDefaults()

	return cfg
}

func (c *ServerConfig) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.GrpcAddr == "" {
		c.GrpcAddr = defaultGrpcAddr
	}

	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}

	c.applyObjectiveDefaults()

	c.Ingest.applyDefaults()
	c.Analysis.applyDefaults()
}

// applyObjectiveDefaults fills each unset target on its own so a file can
// override a single objective.
func (c *ServerConfig) applyObjectiveDefaults() {
	def := reliability.DefaultObjectives
	o := &c.Objectives

	if o.MTBFHours == 0 {
		o.MTBFHours = def.MTBFHours
	}

	if o.MTTRHours == 0 {
		o.MTTRHours = def.MTTRHours
	}

	if o.AvailabilityPct == 0 {
		o.AvailabilityPct = def.AvailabilityPct
	}

	if o.WarningBandPct == 0 {
		o.WarningBandPct = def.WarningBandPct
	}
}

func (c *IngestConfig) applyDefaults() {
	table := ingest.DefaultTableOptions()

	if c.HeaderRow == nil {
		c.HeaderRow = &table.HeaderRow
	}

	if c.FirstColumn == "" {
		c.FirstColumn = table.FirstColumn
	}

	if c.LastColumn == "" {
		c.LastColumn = table.LastColumn
	}

	if c.Strict == nil {
		strict := true
		c.Strict = &strict
	}

	if c.ExcludedFailureTypes == nil {
		c.ExcludedFailureTypes = append([]string(nil), ingest.DefaultExcludedFailureTypes...)
	}
}

func (c *AnalysisConfig) applyDefaults() {
	if c.DefaultWeeks <= 0 {
		c.DefaultWeeks = defaultWeeks
	}

	if c.MachineFamily == "" {
		c.MachineFamily = defaultMachineFamily
	}

	if c.TrackedComponents == nil {
		c.TrackedComponents = append([]string(nil), DefaultTrackedComponents...)
	}

	if c.TopN <= 0 {
		c.TopN = defaultTopN
	}

	if c.RollingWeeks <= 0 {
		c.RollingWeeks = defaultRollingWeeks
	}
}

func (c *ServerConfig) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", errInvalidConfig, err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("%w: store: %w", errInvalidConfig, err)
	}

	if c.Ingest.HeaderRow != nil && *c.Ingest.HeaderRow < 0 {
		return fmt.Errorf("%w: header_row must not be negative", errInvalidConfig)
	}

	if _, _, err := ingest.ParseColumnRange(c.Ingest.FirstColumn, c.Ingest.LastColumn); err != nil {
		return fmt.Errorf("%w: ingest columns: %w", errInvalidConfig, err)
	}

	o := c.Objectives
	if o.MTBFHours <= 0 || o.MTTRHours <= 0 || o.AvailabilityPct <= 0 || o.AvailabilityPct > 100 || o.WarningBandPct < 0 {
		return fmt.Errorf("%w: objectives must be positive and availability at most 100", errInvalidConfig)
	}

	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", errInvalidConfig)
	}

	return nil
}

// TableOptions converts the ingest section for the table readers.
func (c *IngestConfig) TableOptions() ingest.TableOptions {
	opts := ingest.DefaultTableOptions()

	if c.HeaderRow != nil {
		opts.HeaderRow = *c.HeaderRow
	}

	if c.FirstColumn != "" {
		opts.FirstColumn = c.FirstColumn
	}

	if c.LastColumn != "" {
		opts.LastColumn = c.LastColumn
	}

	opts.Sheet = c.Sheet

	return opts
}

// NormalizerOptions converts the ingest section for the normalizer.
func (c *IngestConfig) NormalizerOptions() ingest.Options {
	opts := ingest.DefaultOptions()

	if c.Strict != nil {
		opts.Strict = *c.Strict
	}

	opts.ExcludedFailureTypes = c.ExcludedFailureTypes

	opts.Aliases = c.ColumnAliases
	opts.Year = c.Year

	return opts
}
