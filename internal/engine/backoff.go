package engine

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryState tracks the exponential backoff window of one domain type. A
// type that just failed is skipped on scheduled ticks until its deadline
// passes, instead of being hammered every interval.
type retryState struct {
	mu    sync.Mutex
	bo    *backoff.ExponentialBackOff
	until time.Time
}

func newRetryState() *retryState {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 30 * time.Second
	bo.MaxInterval = 30 * time.Minute
	bo.MaxElapsedTime = 0 // never stop retrying, only space attempts out
	return &retryState{bo: bo}
}

// recordFailure extends the backoff window after a failed sync.
func (r *retryState) recordFailure(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until = now.Add(r.bo.NextBackOff())
}

// recordSuccess resets the window so the next failure starts small again.
func (r *retryState) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bo.Reset()
	r.until = time.Time{}
}

// deadline reports whether the type is still inside its backoff window.
func (r *retryState) deadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.until.IsZero() || !time.Now().Before(r.until) {
		return time.Time{}, false
	}
	return r.until, true
}
