package surface

import (
	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// AddMarker places a marker. onClick may be nil. Adding an id that is
// already present replaces its position and handler.
func (s *Surface) AddMarker(id string, pos orb.Point, onClick func()) {
	if s.removed {
		return
	}
	s.markers[id] = &markerLayer{pos: pos, onClick: onClick}
}

// RemoveMarker drops a marker, its click handler, and its popup if open.
func (s *Surface) RemoveMarker(id string) {
	delete(s.markers, id)
	if s.openPopup == id {
		s.openPopup = ""
	}
}

// MoveMarker updates the position of an existing marker.
func (s *Surface) MoveMarker(id string, pos orb.Point) bool {
	m, ok := s.markers[id]
	if !ok {
		return false
	}
	m.pos = pos
	return true
}

// MarkerPosition returns the position of a marker on the surface.
func (s *Surface) MarkerPosition(id string) (orb.Point, bool) {
	m, ok := s.markers[id]
	if !ok {
		return orb.Point{}, false
	}
	return m.pos, true
}

// MarkerCount returns the number of markers on the surface.
func (s *Surface) MarkerCount() int { return len(s.markers) }

// Click simulates a click on a marker: its popup opens and its handler
// runs. It reports false for an unknown marker.
func (s *Surface) Click(id string) bool {
	m, ok := s.markers[id]
	if !ok || s.removed {
		return false
	}
	s.openPopup = id
	if m.onClick != nil {
		m.onClick()
	}
	return true
}

// OpenPopup returns the id of the marker whose popup is open, if any.
func (s *Surface) OpenPopup() string { return s.openPopup }

// ClosePopup closes the open popup.
func (s *Surface) ClosePopup() { s.openPopup = "" }

// Tiles lists the visible tiles with their load state.
func (s *Surface) Tiles() []TileView {
	visible := geo.VisibleTiles(s.view)
	out := make([]TileView, 0, len(visible))
	for _, t := range visible {
		status, ok := s.tiles[t.Key()]
		if !ok {
			status = TileRemote
		}
		out = append(out, TileView{Tile: t, URL: t.URL(s.opts.TileURL, s.opts.TileSubdomains), Status: status})
	}
	return out
}

// loadTiles starts background fetches for newly visible tiles. Results are
// posted back to the loop and ignored once the surface is removed.
func (s *Surface) loadTiles() {
	if s.fetcher == nil || s.opts.TileURL == "" {
		return
	}
	visible := geo.VisibleTiles(s.view)
	keep := make(map[string]TileStatus, len(visible))
	for _, t := range visible {
		key := t.Key()
		if status, ok := s.tiles[key]; ok {
			keep[key] = status
			continue
		}
		keep[key] = TilePending
		s.fetchTile(t)
	}
	s.tiles = keep
}

func (s *Surface) fetchTile(t geo.Tile) {
	ctx := s.ctx
	url := t.URL(s.opts.TileURL, s.opts.TileSubdomains)
	go func() {
		err := s.fetcher.FetchTile(ctx, url)
		if ctx.Err() != nil {
			return
		}
		s.loop.Post(func() {
			if s.removed {
				return
			}
			key := t.Key()
			if _, ok := s.tiles[key]; !ok {
				return
			}
			if err != nil {
				s.tiles[key] = TileFailed
				s.emit(EventInfo{Type: EventTileError, View: s.view, Tile: t, Err: err})
				return
			}
			s.tiles[key] = TileLoaded
			s.emit(EventInfo{Type: EventTileLoad, View: s.view, Tile: t})
		})
	}()
}
