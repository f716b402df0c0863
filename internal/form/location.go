package form

import (
	"context"

	"github.com/m1ll3r1337/incident-report-service/internal/geo"
)

// RequestLocation asks loc for a fix without blocking. The returned channel yields exactly
// one result and is then closed.
//
// Only the most recent location write wins: a fix is dropped when a later request or a
// manual SetLocation has already been applied. A failed fix is logged and leaves the
// current location untouched. Submit snapshots the draft, so a fix that lands after a
// submission never changes what was sent.
func (f *Form) RequestLocation(ctx context.Context, loc geo.Locator) <-chan geo.Result {
	f.mu.Lock()
	f.locIssued++
	seq := f.locIssued
	f.mu.Unlock()

	ch := make(chan geo.Result, 1)
	go func() {
		defer close(ch)

		p, err := loc.Locate(ctx)
		if err != nil {
			f.log.Info(ctx, "location unavailable", "error", err)
			ch <- geo.Result{Err: err}
			return
		}

		f.mu.Lock()
		applied := seq > f.locApplied
		if applied {
			f.draft.Location = p
			f.locApplied = seq
		}
		f.mu.Unlock()

		ch <- geo.Result{Point: p, Applied: applied}
	}()
	return ch
}
