package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/geo"
	"github.com/Copubah/dirty-nairobi/internal/mapview"
)

// MapEngine is the part of the map engine the API exposes.
type MapEngine interface {
	State(ctx context.Context) (mapview.State, error)
	Features(ctx context.Context) (*geojson.FeatureCollection, error)
	Popup(ctx context.Context, reportID string) (mapview.PopupContent, error)
	ClickMarker(ctx context.Context, reportID string) error
	ActivatePopupControl(ctx context.Context, reportID string) error
	ClickCluster(ctx context.Context, id uint32) (mapview.ClusterClick, error)
	SetView(ctx context.Context, center orb.Point, zoom int, animate bool) (geo.Viewport, error)
	Pan(ctx context.Context, dx, dy float64) (geo.Viewport, error)
}

// SelectionReader exposes the host's current selection.
type SelectionReader interface {
	Last() (domain.Selection, bool)
}

// MapAPI serves the /map routes.
type MapAPI struct {
	engine     MapEngine
	selections SelectionReader
	encoder    *zstd.Encoder
	logger     *slog.Logger
}

// NewMapAPI creates the map routes. selections may be nil.
func NewMapAPI(engine MapEngine, selections SelectionReader, logger *slog.Logger) (*MapAPI, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &MapAPI{
		engine:     engine,
		selections: selections,
		encoder:    enc,
		logger:     logger,
	}, nil
}

func (a *MapAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /map/state", a.handleState)
	mux.HandleFunc("GET /map/features", a.handleFeatures)
	mux.HandleFunc("GET /map/popups/{id}", a.handlePopup)
	mux.HandleFunc("POST /map/popups/{id}/view", a.handlePopupView)
	mux.HandleFunc("POST /map/markers/{id}/click", a.handleMarkerClick)
	mux.HandleFunc("POST /map/clusters/{id}/click", a.handleClusterClick)
	mux.HandleFunc("PUT /map/view", a.handleSetView)
	mux.HandleFunc("POST /map/pan", a.handlePan)
	mux.HandleFunc("GET /map/selection", a.handleSelection)
}

func (a *MapAPI) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := a.engine.State(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeEncoded(w, r, "application/json", st)
}

func (a *MapAPI) handleFeatures(w http.ResponseWriter, r *http.Request) {
	fc, err := a.engine.Features(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeEncoded(w, r, "application/geo+json", fc)
}

func (a *MapAPI) handlePopup(w http.ResponseWriter, r *http.Request) {
	pc, err := a.engine.Popup(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pc)
}

func (a *MapAPI) handlePopupView(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.ActivatePopupControl(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *MapAPI) handleMarkerClick(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.ClickMarker(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *MapAPI) handleClusterClick(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		a.writeError(w, badRequest("cluster id must be an unsigned 32-bit integer"))
		return
	}
	click, err := a.engine.ClickCluster(r.Context(), uint32(id))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, click)
}

type setViewRequest struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Zoom    *int     `json:"zoom"`
	Animate bool     `json:"animate"`
}

func (a *MapAPI) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req setViewRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if req.Lat == nil || req.Lng == nil || req.Zoom == nil {
		a.writeError(w, badRequest("lat, lng and zoom are required"))
		return
	}
	center := orb.Point{*req.Lng, *req.Lat}
	if !(domain.Report{Latitude: *req.Lat, Longitude: *req.Lng}).HasValidGeometry() {
		a.writeError(w, badRequest("lat/lng out of range"))
		return
	}

	view, err := a.engine.SetView(r.Context(), center, *req.Zoom, req.Animate)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (a *MapAPI) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if math.IsNaN(req.DX) || math.IsNaN(req.DY) || math.IsInf(req.DX, 0) || math.IsInf(req.DY, 0) {
		a.writeError(w, badRequest("dx and dy must be finite"))
		return
	}

	view, err := a.engine.Pan(r.Context(), req.DX, req.DY)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *MapAPI) handleSelection(w http.ResponseWriter, _ *http.Request) {
	if a.selections == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no report selected"})
		return
	}
	sel, ok := a.selections.Last()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no report selected"})
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// writeEncoded writes v as JSON, zstd-compressed when the client accepts it.
func (a *MapAPI) writeEncoded(w http.ResponseWriter, r *http.Request, contentType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.writeError(w, fmt.Errorf("encode response: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Add("Vary", "Accept-Encoding")
	if acceptsZstd(r.Header.Get("Accept-Encoding")) {
		data = a.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
		w.Header().Set("Content-Encoding", "zstd")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func acceptsZstd(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "zstd") {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				return false
			}
		}
		return true
	}
	return false
}

type errorBody struct {
	Error string `json:"error"`
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return badRequestError{msg: msg} }

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, mapview.ErrUnknownReport), errors.Is(err, mapview.ErrUnknownCluster):
		return http.StatusNotFound
	case errors.Is(err, mapview.ErrNotMounted), errors.Is(err, mapview.ErrStaleHandle):
		return http.StatusConflict
	case errors.Is(err, mapview.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *MapAPI) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("map request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
