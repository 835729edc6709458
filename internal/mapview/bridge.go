package mapview

import (
	"context"
	"fmt"
)

// Selection channels, used for metrics and logs only.
const (
	channelMarker = "marker"
	channelPopup  = "popup"
)

// markerClick is the click handler bound to a marker on the surface.
func (e *Engine) markerClick(m *mount, id string) func() {
	return func() {
		e.dispatch(m, id, channelMarker)
	}
}

// dispatch resolves id through the current dispatch table and hands the
// report to the selection callback. Both channels end up here so the host
// sees the same call either way.
func (e *Engine) dispatch(m *mount, id, channel string) bool {
	if e.mount != m {
		return false
	}
	r, ok := m.dispatch[id]
	if !ok {
		return false
	}
	e.metrics.Selections.WithLabelValues(channel).Inc()
	e.logger.Debug("report selected", "report_id", id, "channel", channel)
	if e.onSelect != nil {
		e.onSelect(r)
	}
	return true
}

// ClickMarker clicks the marker bound to reportID: its popup opens and the
// report is dispatched to the selection callback.
func (e *Engine) ClickMarker(ctx context.Context, reportID string) error {
	return e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		if !m.surf.Click(reportID) {
			return fmt.Errorf("click marker %q: %w", reportID, ErrUnknownReport)
		}
		return nil
	})
}

// ActivatePopupControl handles the "View Details" control inside a popup.
// The report is looked up by id in the current dispatch table.
func (e *Engine) ActivatePopupControl(ctx context.Context, reportID string) error {
	return e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		if !e.dispatch(m, reportID, channelPopup) {
			return fmt.Errorf("popup control %q: %w", reportID, ErrUnknownReport)
		}
		return nil
	})
}

// Popup renders the popup for the marker bound to reportID.
func (e *Engine) Popup(ctx context.Context, reportID string) (PopupContent, error) {
	var pc PopupContent
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		r, ok := m.dispatch[reportID]
		if !ok {
			return fmt.Errorf("popup %q: %w", reportID, ErrUnknownReport)
		}
		pc, err = RenderPopup(r, m.images[reportID] == imageBroken)
		return err
	})
	return pc, err
}

// ClosePopup closes the open popup, if any.
func (e *Engine) ClosePopup(ctx context.Context) error {
	return e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		m.surf.ClosePopup()
		return nil
	})
}

// SetLoading sets the host loading flag. While loading the overlay shows the
// loading indicator instead of the empty-state message; markers keep updating.
func (e *Engine) SetLoading(ctx context.Context, loading bool) error {
	return e.do(ctx, func() error {
		e.loading = loading
		return nil
	})
}
