package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/airquality-dashboard/internal/adapter/http"
	"github.com/couchcryptid/airquality-dashboard/internal/adapter/xlsx"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- fixtures ---

type staticSource struct {
	ds  *domain.Dataset
	err error
}

func (s *staticSource) Load(_ context.Context) (*domain.Dataset, error) {
	return s.ds, s.err
}

func ptr(v float64) *float64 { return &v }

func record(station string, year, month, day, hour int, pm25 *float64) domain.Record {
	return domain.Record{
		Station:   station,
		Year:      year,
		Month:     month,
		Day:       day,
		Hour:      hour,
		Timestamp: time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC),
		PM25:      pm25,
	}
}

func fixture() *domain.Dataset {
	ds := domain.Enrich(domain.Dataset{Records: []domain.Record{
		record("Aotizhongxin", 2014, 3, 3, 8, ptr(10)),
		record("Aotizhongxin", 2015, 3, 3, 9, ptr(20)),
		record("Aotizhongxin", 2016, 3, 3, 10, ptr(30)),
		record("Dongsi", 2013, 5, 4, 8, ptr(120)),
		record("Dongsi", 2017, 1, 1, 8, ptr(220)),
	}})
	return &ds
}

func newTestServer(t *testing.T, src pipeline.DatasetSource) (*httpadapter.Server, *pipeline.Dashboard, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	d := pipeline.New(src, nil, domain.DefaultConstants(), slog.Default(), metrics)
	return httpadapter.NewServer(":0", d, metrics, slog.Default()), d, metrics
}

func do(srv http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeRendered(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health, readiness, metrics ---

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns503UntilLoaded(t *testing.T) {
	srv, d, _ := newTestServer(t, &staticSource{ds: fixture()})

	rec := do(srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])

	require.NoError(t, d.Warm(context.Background()))
	rec = do(srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- API ---

func TestConstantsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/api/constants", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeRendered(t, rec)
	assert.Len(t, body["pollutants"], 6)
	assert.Len(t, body["weather_factors"], 5)
	assert.Len(t, body["severity_thresholds"], 5)
	assert.Len(t, body["stations"], 12)
	assert.EqualValues(t, 2013, body["year_min"])
}

func TestStationsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/api/stations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Aotizhongxin", "Dongsi"}, body["stations"])
}

func TestRenderEndpoint_Query(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/api/render?pollutant=PM2.5&from=2014&to=2016&station=Aotizhongxin,Dongsi", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeRendered(t, rec)
	assert.NotEmpty(t, body["id"])
	view := body["view"].(map[string]any)
	assert.Equal(t, "PM2.5 from 2014 to 2016", view["headline"])
	assert.EqualValues(t, 3, view["records"])

	averages := view["station_averages"].([]any)
	require.Len(t, averages, 2)
	assert.EqualValues(t, 20, averages[0].(map[string]any)["average"])
	assert.Nil(t, averages[1].(map[string]any)["average"])
	assert.Len(t, view["map_markers"], 1)
}

func TestRenderEndpoint_DefaultSelection(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/api/render", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeRendered(t, rec)["view"].(map[string]any)
	assert.EqualValues(t, 5, view["records"])
}

func TestRenderEndpoint_EmptyStationParamSelectsNothing(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/api/render?station=", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeRendered(t, rec)["view"].(map[string]any)
	assert.EqualValues(t, 0, view["records"])
}

func TestRenderEndpoint_Post(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodPost, "/api/render", []byte(`{"year_low":2017,"year_high":2013}`))
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeRendered(t, rec)["view"].(map[string]any)
	assert.EqualValues(t, 0, view["records"], "inverted range is an empty view")
}

func TestRenderEndpoint_BadRequests(t *testing.T) {
	srv, _, metrics := newTestServer(t, &staticSource{ds: fixture()})

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"unknown pollutant", http.MethodGet, "/api/render?pollutant=PM1", ""},
		{"unknown weather factor", http.MethodGet, "/api/render?weather=HUMIDITY", ""},
		{"non-numeric year", http.MethodGet, "/api/render?from=soon", ""},
		{"malformed body", http.MethodPost, "/api/render", "{"},
		{"unknown field", http.MethodPost, "/api/render", `{"colour":"red"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, tt.method, tt.target, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], "invalid selection")
		})
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("invalid")))
}

func TestRenderEndpoint_LoadFailure(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{err: errors.New("file not found: data")})
	rec := do(srv, http.MethodGet, "/api/render", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "file not found")
}

func TestExportEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	rec := do(srv, http.MethodGet, "/api/export?station=Aotizhongxin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsx.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, pipeline.TableOrder, f.GetSheetList())
	rows, err := f.GetRows(pipeline.TableRecords)
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header plus three Aotizhongxin records")
}

// --- websocket ---

func dialWebsocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wsReply struct {
	Type     string             `json:"type"`
	Rendered *pipeline.Rendered `json:"rendered"`
	Error    string             `json:"error"`
}

func readReply(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebsocket_RendersInOrder(t *testing.T) {
	srv, _, metrics := newTestServer(t, &staticSource{ds: fixture()})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn := dialWebsocket(t, ts)

	initial := readReply(t, conn)
	require.Equal(t, "view", initial.Type)
	assert.Equal(t, 5, initial.Rendered.View.Records, "default selection on connect")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebsocketClients))

	require.NoError(t, conn.WriteJSON(map[string]any{"stations": []string{"Dongsi"}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"pollutant": "PM1"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"year_low": 2015, "year_high": 2015}))

	first := readReply(t, conn)
	require.Equal(t, "view", first.Type)
	assert.Equal(t, 2, first.Rendered.View.Records)

	second := readReply(t, conn)
	assert.Equal(t, "error", second.Type)
	assert.Contains(t, second.Error, "invalid selection")

	third := readReply(t, conn)
	require.Equal(t, "view", third.Type)
	assert.Equal(t, 1, third.Rendered.View.Records)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WebsocketClients) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWebsocket_ClosedOnShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticSource{ds: fixture()})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn := dialWebsocket(t, ts)
	_ = readReply(t, conn)

	require.NoError(t, srv.Shutdown(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
