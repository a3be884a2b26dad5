package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/profile"
)

type batchDuplicatesFilter struct{}

// NewBatchDuplicates creates a filter that keeps only the first of several
// candidates sharing a fingerprint within one import.
func NewBatchDuplicates() Filter {
	return &batchDuplicatesFilter{}
}

func (f *batchDuplicatesFilter) Name() string { return "batch_duplicates" }

func (f *batchDuplicatesFilter) Disable(string) {}

func (f *batchDuplicatesFilter) IsEnabled() bool { return true }

func (f *batchDuplicatesFilter) Validate(*Config) error { return nil }

func (f *batchDuplicatesFilter) Apply(_ context.Context, deps Deps, batch []*profile.Candidate) ([]*profile.Candidate, Step, error) {
	initial := len(batch)
	seen := make(map[string]struct{}, initial)

	kept, removed, _ := keep(batch, func(c *profile.Candidate) (bool, error) {
		fp := c.Fingerprint()
		if _, ok := seen[fp]; ok {
			return false, nil
		}
		seen[fp] = struct{}{}
		return true, nil
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("dropping repeated candidates within the import",
			zap.Strings("dropped_candidates", names(removed)),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

type storedDuplicatesFilter struct {
	disabled bool
	reason   string
}

// NewStoredDuplicates creates a filter that drops candidates already present in the store.
func NewStoredDuplicates() Filter {
	return &storedDuplicatesFilter{}
}

func (f *storedDuplicatesFilter) Name() string { return "stored_duplicates" }

func (f *storedDuplicatesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *storedDuplicatesFilter) IsEnabled() bool { return !f.disabled }

func (f *storedDuplicatesFilter) Validate(*Config) error { return nil }

func (f *storedDuplicatesFilter) Apply(ctx context.Context, deps Deps, batch []*profile.Candidate) ([]*profile.Candidate, Step, error) {
	initial := len(batch)
	if deps.Store == nil {
		return batch, Step{}, fmt.Errorf("candidate store is required")
	}

	kept, removed, err := keep(batch, func(c *profile.Candidate) (bool, error) {
		exists, err := deps.Store.CandidateExists(ctx, c.Fingerprint())
		if err != nil {
			return false, fmt.Errorf("checking candidate %q: %w", c.Name, err)
		}
		return !exists, nil
	})
	if err != nil {
		return batch, Step{}, err
	}

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("dropping candidates that are already stored",
			zap.Strings("dropped_candidates", names(removed)),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *storedDuplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
