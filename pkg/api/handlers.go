package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/carverauto/downtimeradar/pkg/core"
	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/reliability"
	"github.com/carverauto/downtimeradar/pkg/report"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

const (
	maxUploadBytes = 32 << 20
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	errBadParameter = errors.New("bad parameter")
	errMissingFile  = errors.New("missing file field")
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var missing *ingest.MissingColumnError

	switch {
	case errors.As(err, &missing):
		status = http.StatusBadRequest
		resp.Column = missing.Column.DisplayName()
	case errors.Is(err, snapshot.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadParameter), errors.Is(err, errMissingFile),
		errors.Is(err, snapshot.ErrInvalidSnapshot), ingest.IsInputError(err):
		status = http.StatusBadRequest
	default:
		log.WithError(err).Error("request failed")

		resp.Error = "internal server error"
	}

	writeJSON(w, status, resp)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadParameter, name, raw)
	}

	return v, nil
}

func weekParam(r *http.Request) (int, error) {
	raw := mux.Vars(r)["week"]

	week, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: week %q", errBadParameter, raw)
	}

	return week, nil
}

func (s *APIServer) uploadWeek(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: %w", errBadParameter, err))
		return
	}

	openTime, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("open_time")), 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: open_time %q", errBadParameter, r.FormValue("open_time")))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", errMissingFile, err))
		return
	}
	defer file.Close()

	rep, err := s.svc.Ingest(r.Context(), &core.IngestRequest{
		Filename: header.Filename,
		Body:     file,
		Week:     week,
		OpenTime: openTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !rep.Saved {
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, rep)
}

func (s *APIServer) getWeeks(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	set, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := weeksResponse{
		Weeks:   make([]models.SnapshotSummary, 0, len(set.Snapshots)),
		Skipped: set.Skipped,
	}

	for i := range set.Snapshots {
		resp.Weeks = append(resp.Weeks, set.Snapshots[i].Summary())
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) getWeek(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snap, err := s.svc.Snapshot(r.Context(), week)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *APIServer) resetWeeks(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) getPareto(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts, err := groupOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	groups, err := s.svc.Pareto(r.Context(), week, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, groups)
}

func groupOptions(r *http.Request) (reliability.GroupOptions, error) {
	q := r.URL.Query()

	opts := reliability.GroupOptions{
		Key:           reliability.ByFailureType,
		MachineFilter: q.Get("machine"),
		FailureType:   q.Get("failure_type"),
	}

	if by := q.Get("by"); by != "" {
		switch key := reliability.GroupKey(by); key {
		case reliability.ByFailureType, reliability.ByMachine, reliability.BySubDefect:
			opts.Key = key
		default:
			return opts, fmt.Errorf("%w: by=%q", errBadParameter, by)
		}
	}

	measure, err := measureParam(r)
	if err != nil {
		return opts, err
	}

	opts.Measure = measure

	if opts.Key == reliability.BySubDefect && opts.FailureType == "" {
		return opts, fmt.Errorf("%w: failure_type is required with by=sub_defect", errBadParameter)
	}

	opts.Limit, err = intParam(r, "limit", 0)

	return opts, err
}

func measureParam(r *http.Request) (reliability.Measure, error) {
	switch m := reliability.Measure(r.URL.Query().Get("measure")); m {
	case "":
		return reliability.MeasureDowntime, nil
	case reliability.MeasureDowntime, reliability.MeasureCount:
		return m, nil
	default:
		return "", fmt.Errorf("%w: measure=%q", errBadParameter, m)
	}
}

func (s *APIServer) getStops(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stops, err := s.svc.Stops(r.Context(), week)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stops)
}

func (s *APIServer) getMachines(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	machines, err := s.svc.Machines(r.Context(), week, r.URL.Query().Get("family"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, machines)
}

func (s *APIServer) getComponents(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	measure, err := measureParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	components, err := s.svc.Components(r.Context(), week, measure)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, components)
}

func (s *APIServer) getWeeklyMetrics(w http.ResponseWriter, r *http.Request) {
	s.metricsReport(w, r, s.svc.WeeklyMetrics)
}

func (s *APIServer) getMonthlyMetrics(w http.ResponseWriter, r *http.Request) {
	s.metricsReport(w, r, s.svc.MonthlyMetrics)
}

func (*APIServer) metricsReport(w http.ResponseWriter, r *http.Request, load reportFunc) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	rep, err := load(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func (s *APIServer) exportMetrics(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	load := s.svc.WeeklyMetrics
	if r.URL.Query().Get("period") == "monthly" {
		load = s.svc.MonthlyMetrics
	}

	rep, err := load(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteMetricsXLSX(&buf, rep.MetricsRows()); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxMediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="indicateurs.xlsx"`)

	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

func (s *APIServer) getTopFailures(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	top, err := intParam(r, "top", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	periods, err := s.svc.TopFailures(r.Context(), limit, top)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, periods)
}
