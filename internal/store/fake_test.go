package store

import (
	"context"
	"sync"

	"biogas-server/internal/query"
)

// fakeStore replays rows or fails with err, counting calls.
type fakeStore struct {
	mu      sync.Mutex
	rows    []Row
	err     error
	pingErr error
	calls   int
	closed  bool
}

func (f *fakeStore) Kind() string { return "Fake" }

func (f *fakeStore) Query(ctx context.Context, _ query.Query, fn RowFunc) error {
	f.mu.Lock()
	f.calls++
	rows, err := f.rows, f.err
	f.mu.Unlock()

	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r); err != nil {
			return classify(ctx, err)
		}
	}
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
