package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/Copubah/dirty-nairobi/internal/adapter/http"
	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/mapview"
	"github.com/Copubah/dirty-nairobi/internal/observability"
	"github.com/Copubah/dirty-nairobi/internal/selection"
	"github.com/Copubah/dirty-nairobi/internal/surface"
)

type mapFixture struct {
	srv     *httpadapter.Server
	engine  *mapview.Engine
	handle  *mapview.Handle
	tracker *selection.Tracker
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMapFixture(t *testing.T, mount bool) *mapFixture {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	tracker := selection.NewTracker(discardLogger(), metrics)
	engine := mapview.NewEngine(mapview.DefaultOptions(), tracker.Select, discardLogger(), metrics, clockwork.NewFakeClock())
	t.Cleanup(func() { _ = engine.Close() })

	api, err := httpadapter.NewMapAPI(engine, tracker, discardLogger())
	require.NoError(t, err)

	f := &mapFixture{
		srv:     httpadapter.NewServer(":0", &mockReadiness{}, api, discardLogger()),
		engine:  engine,
		tracker: tracker,
	}
	if mount {
		f.handle, err = engine.Initialize(context.Background(), surface.Container{ID: "map", Width: 1024, Height: 768}, domain.NairobiBoundary, domain.DefaultZooms)
		require.NoError(t, err)
	}
	return f
}

func (f *mapFixture) reconcile(t *testing.T, reports ...domain.Report) {
	t.Helper()
	_, err := f.engine.Reconcile(context.Background(), f.handle, reports)
	require.NoError(t, err)
}

func (f *mapFixture) do(method, target string, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func photo(id string, lat, lng float64) domain.Report {
	return domain.Report{
		ID:          id,
		Description: "report " + id,
		Latitude:    lat,
		Longitude:   lng,
		ImageURL:    "https://photos.test/" + id + ".jpg",
		CreatedAt:   time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC),
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func (f *mapFixture) state(t *testing.T) mapview.State {
	t.Helper()
	rec := f.do(http.MethodGet, "/map/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st mapview.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestMapState(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.2833, 36.8167), photo("b", -1.3133, 36.7876))
	require.NoError(t, f.engine.SetLoading(context.Background(), false))

	rec := f.do(http.MethodGet, "/map/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Encoding"))

	var st mapview.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Mounted)
	assert.Len(t, st.Markers, 2)
	assert.Equal(t, "stats", st.Overlay.Kind)
	assert.Equal(t, "2 photos displayed", st.Overlay.Message)
}

func TestMapState_LoadingOverlayReplacesStats(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.2833, 36.8167), photo("b", -1.3133, 36.7876))

	st := f.state(t)
	assert.Equal(t, "loading", st.Overlay.Kind, "engine starts loading")
	assert.Equal(t, "Loading photos...", st.Overlay.Message)
	assert.Len(t, st.Markers, 2, "markers update underneath the loading overlay")

	require.NoError(t, f.engine.SetLoading(context.Background(), false))
	assert.Equal(t, "2 photos displayed", f.state(t).Overlay.Message)

	require.NoError(t, f.engine.SetLoading(context.Background(), true))
	assert.Equal(t, "Loading photos...", f.state(t).Overlay.Message)
}

func TestMapState_Unmounted(t *testing.T) {
	f := newMapFixture(t, false)

	rec := f.do(http.MethodGet, "/map/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st mapview.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Mounted)
	assert.Equal(t, "loading", st.Overlay.Kind)
}

func TestMapState_Zstd(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.2833, 36.8167))

	rec := f.do(http.MethodGet, "/map/state", "", "Accept-Encoding", "gzip, zstd")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zstd", rec.Header().Get("Content-Encoding"))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(rec.Body.Bytes(), nil)
	require.NoError(t, err)

	var st mapview.State
	require.NoError(t, json.Unmarshal(plain, &st))
	require.Len(t, st.Markers, 1)
	assert.Equal(t, "a", st.Markers[0].ReportID)
}

func TestMapState_ZstdRefused(t *testing.T) {
	f := newMapFixture(t, true)

	rec := f.do(http.MethodGet, "/map/state", "", "Accept-Encoding", "zstd;q=0, gzip")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestMapFeatures(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.2833, 36.8167))

	rec := f.do(http.MethodGet, "/map/features", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "a", fc.Features[0].ID)
	assert.Equal(t, "report a", fc.Features[0].Properties["description"])
}

func TestMapFeatures_NotMountedIsConflict(t *testing.T) {
	f := newMapFixture(t, false)

	rec := f.do(http.MethodGet, "/map/features", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, errorOf(t, rec), "not mounted")
}

func TestMapPopup(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.2833, 36.8167))

	rec := f.do(http.MethodGet, "/map/popups/a", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pc mapview.PopupContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pc))
	assert.Equal(t, "a", pc.ReportID)
	assert.Equal(t, "custom-popup", pc.ClassName)
	assert.Contains(t, pc.HTML, "report a")

	rec = f.do(http.MethodGet, "/map/popups/zzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapSelectionFlow(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.2833, 36.8167), photo("b", -1.3133, 36.7876))

	rec := f.do(http.MethodGet, "/map/selection", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/map/markers/a/click", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/map/selection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sel domain.Selection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	assert.Equal(t, "a", sel.Report.ID)

	rec = f.do(http.MethodPost, "/map/popups/b/view", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	last, ok := f.tracker.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Report.ID)
	assert.Equal(t, int64(2), f.tracker.Count())

	rec = f.do(http.MethodPost, "/map/markers/gone/click", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapClusterClick(t *testing.T) {
	f := newMapFixture(t, true)
	f.reconcile(t, photo("a", -1.30000, 36.82000), photo("b", -1.30005, 36.82005))

	_, err := f.engine.SetView(context.Background(), domain.NairobiCenter, 12, false)
	require.NoError(t, err)
	res, err := f.engine.Clusters(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)

	rec := f.do(http.MethodPost, "/map/clusters/"+strconv.FormatUint(uint64(res.Clusters[0].ID), 10)+"/click", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var click mapview.ClusterClick
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &click))
	assert.Equal(t, "zoom_to_bounds", string(click.Action))
	assert.Greater(t, click.View.Zoom, 12)

	rec = f.do(http.MethodPost, "/map/clusters/not-a-number/click", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/map/clusters/4294967295/click", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapSetView(t *testing.T) {
	f := newMapFixture(t, true)

	rec := f.do(http.MethodPut, "/map/view", `{"lat":-1.30,"lng":36.80,"zoom":30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Center [2]float64 `json:"center"`
		Zoom   int        `json:"zoom"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 18, view.Zoom, "zoom is clamped to the range")
}

func TestMapSetView_BadInput(t *testing.T) {
	f := newMapFixture(t, true)

	tests := []struct {
		name string
		body string
	}{
		{"missing zoom", `{"lat":-1.3,"lng":36.8}`},
		{"latitude out of range", `{"lat":-91,"lng":36.8,"zoom":12}`},
		{"unknown field", `{"lat":-1.3,"lng":36.8,"zoom":12,"bearing":90}`},
		{"not json", `lat=-1.3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPut, "/map/view", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorOf(t, rec))
		})
	}
}

func TestMapPan(t *testing.T) {
	f := newMapFixture(t, true)
	before, err := f.engine.View(context.Background())
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/map/pan", `{"dx":100,"dy":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Center [2]float64 `json:"center"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Greater(t, view.Center[0], before.Center[0], "panning right moves the center east")
}

func TestMapPan_Unmounted(t *testing.T) {
	f := newMapFixture(t, false)

	rec := f.do(http.MethodPost, "/map/pan", `{"dx":1,"dy":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMapRoutes_ClosedEngine(t *testing.T) {
	f := newMapFixture(t, true)
	require.NoError(t, f.engine.Close())

	rec := f.do(http.MethodGet, "/map/features", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMapRoutes_MethodNotAllowed(t *testing.T) {
	f := newMapFixture(t, true)

	rec := f.do(http.MethodPost, "/map/state", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
