package mapview

import "errors"

var (
	// ErrNotMounted is returned when an operation needs a live surface and none is mounted.
	ErrNotMounted = errors.New("map surface not mounted")
	// ErrStaleHandle is returned for a handle from an earlier mount.
	ErrStaleHandle = errors.New("map handle is stale")
	// ErrUnknownReport is returned when no live marker is bound to the report id.
	ErrUnknownReport = errors.New("unknown report")
	// ErrUnknownCluster is returned for a cluster id not in the current computation.
	ErrUnknownCluster = errors.New("unknown cluster")
	// ErrClosed is returned once the engine loop has stopped.
	ErrClosed = errors.New("map engine closed")
)

// misuse applies the lifecycle misuse policy on the caller's goroutine:
// with Strict set a broken precondition panics, otherwise the error is
// returned and the call had no effect.
func (e *Engine) misuse(err error) error {
	if !errors.Is(err, ErrNotMounted) && !errors.Is(err, ErrStaleHandle) {
		return err
	}
	if e.opts.Strict {
		panic(err)
	}
	e.logger.Warn("map lifecycle misuse", "error", err)
	return err
}
