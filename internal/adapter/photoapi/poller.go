package photoapi

import (
	"context"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// SourceName labels snapshots fetched from the photo API.
const SourceName = "api"

// lister is the part of Client the poller needs.
type lister interface {
	ListPhotos(ctx context.Context, f Filter) ([]domain.Report, error)
}

// Poller turns the photo listing into a stream of report snapshots.
// It implements pipeline.ReportSource.
type Poller struct {
	client   lister
	filter   Filter
	interval time.Duration
	clock    clockwork.Clock

	polls   int
	waitFor bool
}

// NewPoller creates a poller fetching filter every interval. The first fetch
// happens immediately.
func NewPoller(client lister, filter Filter, interval time.Duration, clock clockwork.Clock) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		client:   client,
		filter:   filter,
		interval: interval,
		clock:    clock,
	}
}

func (p *Poller) Name() string { return SourceName }

// Next waits out the poll interval since the last successful fetch and
// returns the listing. After a failed fetch the next call retries without
// waiting; the caller owns retry pacing.
func (p *Poller) Next(ctx context.Context) (domain.ReportSnapshot, error) {
	if p.waitFor {
		select {
		case <-ctx.Done():
			return domain.ReportSnapshot{}, ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}

	reports, err := p.client.ListPhotos(ctx, p.filter)
	if err != nil {
		p.waitFor = false
		return domain.ReportSnapshot{}, err
	}
	p.waitFor = true
	p.polls++

	return domain.ReportSnapshot{
		Reports:   reports,
		Source:    SourceName,
		Revision:  strconv.Itoa(p.polls),
		FetchedAt: p.clock.Now(),
	}, nil
}
