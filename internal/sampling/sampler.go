package sampling

import "context"

// Sampler is an open session with a GPU management backend. Close releases
// it and must be called exactly once.
type Sampler interface {
	Sample(ctx context.Context) (Snapshot, error)
	Close() error
	Name() string
}
