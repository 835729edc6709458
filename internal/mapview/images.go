package mapview

import (
	"context"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

type imageState int

const (
	imageUnknown imageState = iota
	imagePending
	imageOK
	imageBroken
)

// checkImages starts a background availability check for every thumbnail
// not yet checked on this mount. Results come back through the loop and only
// ever flip a popup to its placeholder; marker and cluster state is never
// touched. Loop only.
func (e *Engine) checkImages(m *mount, reports map[string]domain.Report) {
	checker := e.opts.ImageChecker
	if checker == nil {
		return
	}
	ctx := m.ctx
	for id, r := range reports {
		if m.images[id] != imageUnknown {
			continue
		}
		if r.ImageURL == "" {
			m.images[id] = imageBroken
			continue
		}
		m.images[id] = imagePending
		go e.checkImage(ctx, checker, m, id, r.ImageURL)
	}
}

func (e *Engine) checkImage(ctx context.Context, checker ImageChecker, m *mount, id, url string) {
	ok, err := checker.Available(ctx, url)
	if ctx.Err() != nil {
		return
	}
	state := imageOK
	switch {
	case err != nil:
		// Unknown is not broken; the client still gets to try.
		state = imageUnknown
		e.logger.Debug("thumbnail check failed", "report_id", id, "error", err)
	case !ok:
		state = imageBroken
	}

	e.post(func() {
		if e.mount != m {
			return
		}
		if _, live := m.markers[id]; !live {
			return
		}
		m.images[id] = state
	})
}
