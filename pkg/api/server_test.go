package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/carverauto/downtimeradar/pkg/core"
	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

const weekCSV = `Type Of Failure,Down Time,Machine,Microstop Description
KIT-JOINT,00:15:00,KOMAX 7,joint absent
MARQUAGE,00:30:00,KOMAX 2,encre
DEMARRAGE PARC,01:00:00,,
TOTAL,00:45:00,,
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	normalizer := ingest.DefaultOptions()
	normalizer.Year = 2025

	reg := prometheus.NewRegistry()
	svc := core.NewService(snapshot.NewMemoryStore(), &core.Options{
		Table:      ingest.TableOptions{FirstColumn: "A"},
		Normalizer: normalizer,
		Registerer: reg,
	})

	srv := httptest.NewServer(NewAPIServer(svc, Options{Registry: reg}).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func upload(t *testing.T, srv *httptest.Server, week, openTime, filename, body string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if openTime != "" {
		require.NoError(t, mw.WriteField("open_time", openTime))
	}

	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)

		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/weeks/"+week, mw.FormDataContentType(), &buf)
	require.NoError(t, err)

	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)

	return resp
}

func TestUploadAndBrowse(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv, "10", "100", "week10.csv", weekCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rep core.IngestReport
	decode(t, resp, &rep)
	assert.True(t, rep.Saved)
	assert.Equal(t, 2, rep.EventCount)
	assert.Equal(t, "2025-03", rep.Month)

	resp = get(t, srv, "/api/weeks")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var weeks weeksResponse
	decode(t, resp, &weeks)
	require.Len(t, weeks.Weeks, 1)
	assert.Equal(t, 10, weeks.Weeks[0].Week)
	assert.Equal(t, 2, weeks.Weeks[0].EventCount)

	resp = get(t, srv, "/api/weeks/10")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.WeeklySnapshot
	decode(t, resp, &snap)
	require.Len(t, snap.Events, 2)
	assert.Equal(t, models.KnownHours(0.25), snap.Events[0].DownTime)

	resp = get(t, srv, "/api/weeks/11")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, srv, "/api/metrics/weekly")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var metrics core.MetricsReport
	decode(t, resp, &metrics)
	require.Len(t, metrics.Rows, 1)
	assert.InDelta(t, 0.75, metrics.Rows[0].TotalDownTime, 1e-9)
	assert.InDelta(t, 99.25, metrics.Rows[0].AvailabilityPct, 1e-9)

	resp = get(t, srv, "/api/weeks/10/pareto?measure=ta&limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pareto []models.RankedGroup
	decode(t, resp, &pareto)
	require.Len(t, pareto, 1)
	assert.Equal(t, "MARQUAGE", pareto[0].Group)
	assert.InDelta(t, 100, pareto[0].CumulativePct, 1e-9)

	resp = get(t, srv, "/api/weeks/10/machines")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var machines []models.MachineIndicator
	decode(t, resp, &machines)
	assert.Len(t, machines, 2)

	resp = get(t, srv, "/api/compare/top?top=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var top []models.PeriodTop
	decode(t, resp, &top)
	require.Len(t, top, 1)
	assert.Equal(t, "Week 10", top[0].Period)
}

func TestUploadErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		week       string
		openTime   string
		filename   string
		body       string
		wantStatus int
		wantColumn string
	}{
		{
			name:       "missing column",
			week:       "3",
			openTime:   "40",
			filename:   "week3.csv",
			body:       "Machine,Down Time\nKOMAX 1,00:10:00\n",
			wantStatus: http.StatusBadRequest,
			wantColumn: "Type Of Failure",
		},
		{
			name:       "nothing to save",
			week:       "3",
			openTime:   "40",
			filename:   "week3.csv",
			body:       "Type Of Failure,Down Time\nDEMARRAGE PARC,01:00:00\n",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{name: "missing open time", week: "3", filename: "week3.csv", body: weekCSV, wantStatus: http.StatusBadRequest},
		{name: "missing file", week: "3", openTime: "40", wantStatus: http.StatusBadRequest},
		{name: "week out of range", week: "60", openTime: "40", filename: "w.csv", body: weekCSV, wantStatus: http.StatusBadRequest},
		{name: "unsupported format", week: "3", openTime: "40", filename: "w.pdf", body: "x", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, srv, tt.week, tt.openTime, tt.filename, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantColumn != "" {
				var e errorResponse
				decode(t, resp, &e)
				assert.Equal(t, tt.wantColumn, e.Column)

				return
			}

			resp.Body.Close()
		})
	}
}

func TestParetoParameterValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv, "5", "40", "w.csv", weekCSV)
	resp.Body.Close()

	for _, q := range []string{"by=colour", "measure=cost", "by=sub_defect", "limit=-1"} {
		resp := get(t, srv, "/api/weeks/5/pareto?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		resp.Body.Close()
	}

	resp = get(t, srv, "/api/weeks/5/pareto?by=sub_defect&failure_type=kit-joint")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var groups []models.RankedGroup
	decode(t, resp, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "joint absent", groups[0].Group)
}

func TestExportAndReset(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv, "7", "80", "w.csv", weekCSV)
	resp.Body.Close()

	resp = get(t, srv, "/api/metrics/export.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxMediaType, resp.Header.Get("Content-Type"))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	rows, err := f.GetRows("Indicateurs")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Week 7", rows[1][0])
	require.NoError(t, f.Close())

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/weeks", http.NoBody)
	require.NoError(t, err)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, srv, "/api/weeks")

	var weeks weeksResponse
	decode(t, resp, &weeks)
	assert.Empty(t, weeks.Weeks)
}

func TestPreflightAndMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/weeks/3", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	resp.Body.Close()

	resp = get(t, srv, "/api/weeks")
	resp.Body.Close()

	resp = get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, body.String(), "downtimeradar_http_request_duration_seconds")
}

func TestChangeFeed(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	defer conn.Close()
	resp.Body.Close()

	// Give the handler time to subscribe before the upload.
	time.Sleep(100 * time.Millisecond)

	up := upload(t, srv, "9", "40", "w.csv", weekCSV)
	up.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev models.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.ChangeSnapshotSaved, ev.Kind)
	assert.Equal(t, 9, ev.Week)
}
