// Package trigger turns storage events and a periodic sweep into
// recomputations.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/logger/api"
	"github.com/bignyap/studio-storage/memcache"
)

// Recomputer is satisfied by *accounting.Accountant.
type Recomputer interface {
	Recompute(ctx context.Context, slug string) (accounting.Report, error)
	WithTimeout(ctx context.Context) (context.Context, context.CancelFunc)
}

// Dispatcher recomputes the tenant named by each event. A tenant triggered
// again within the debounce window is skipped; a failed run releases the
// window so the next event retries.
type Dispatcher struct {
	acct     Recomputer
	recent   *memcache.Client
	debounce time.Duration
	log      api.Logger
}

func NewDispatcher(acct Recomputer, debounce time.Duration, log api.Logger) *Dispatcher {
	d := &Dispatcher{
		acct:     acct,
		debounce: debounce,
		log:      api.OrDefault(log).WithComponent("trigger.dispatcher"),
	}
	if debounce > 0 {
		d.recent = memcache.New(memcache.Config{DefaultTTL: debounce})
	}
	return d
}

// Handle decodes payload and recomputes. Malformed payloads and unknown
// tenants are reported but are not worth redelivering.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	ev, err := DecodeEvent(payload)
	if err != nil {
		return err
	}

	if d.recent != nil && !d.recent.Claim(ev.TenantSlug, d.debounce) {
		d.log.Debug(ctx, "recompute debounced", api.String("slug", ev.TenantSlug))
		return nil
	}

	rctx, cancel := d.acct.WithTimeout(ctx)
	defer cancel()

	if _, err := d.acct.Recompute(rctx, ev.TenantSlug); err != nil {
		if d.recent != nil && !errors.Is(err, accounting.ErrTenantNotFound) {
			d.recent.Delete(ev.TenantSlug)
		}
		return fmt.Errorf("recompute %s: %w", ev.TenantSlug, err)
	}
	return nil
}
