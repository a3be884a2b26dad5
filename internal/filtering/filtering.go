// Package filtering drops imported candidates that must not reach the store.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/profile"
)

// Filter is a single step applied to an import batch.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, batch []*profile.Candidate) ([]*profile.Candidate, Step, error)
}

// ExistenceChecker reports whether a candidate with the fingerprint is already stored.
type ExistenceChecker interface {
	CandidateExists(ctx context.Context, fingerprint string) (bool, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Store  ExistenceChecker
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludeEmails []string
	ExcludeFile   string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Default returns the import filters in the order they run.
func Default() []Filter {
	return []Filter{
		NewExcluded(),
		NewBatchDuplicates(),
		NewStoredDuplicates(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the enabled filters in order and returns the surviving
// candidates together with the number of dropped ones.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, batch []*profile.Candidate) ([]*profile.Candidate, int, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	dropped := 0
	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, batch)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		dropped += info.Dropped
		batch = next
	}

	return batch, dropped, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the candidates for which fn reports true.
func keep(batch []*profile.Candidate, fn func(*profile.Candidate) (bool, error)) ([]*profile.Candidate, []*profile.Candidate, error) {
	kept := make([]*profile.Candidate, 0, len(batch))
	var removed []*profile.Candidate
	for _, c := range batch {
		ok, err := fn(c)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			kept = append(kept, c)
			continue
		}
		removed = append(removed, c)
	}
	return kept, removed, nil
}

func names(batch []*profile.Candidate) []string {
	out := make([]string, 0, len(batch))
	for _, c := range batch {
		out = append(out, c.Name)
	}
	return out
}
