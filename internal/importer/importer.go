// Package importer loads candidates from CSV files and job board exports into the store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/filtering"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/profile"
)

// ErrInvalidInput marks files and payloads that cannot be turned into candidates.
var ErrInvalidInput = errors.New("invalid import input")

// Source names where imported candidates come from.
type Source string

const (
	SourceCSV      Source = "csv"
	SourceHH       Source = "hh"
	SourceLinkedIn Source = "linkedin"
	SourceTelegram Source = "telegram"
)

// Label is the value stored in Candidate.Source when an imported record
// does not carry its own. Board exports keep their historical "_stub" labels.
func (s Source) Label() string {
	if s == SourceCSV {
		return string(s)
	}
	return string(s) + "_stub"
}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceCSV, SourceHH, SourceLinkedIn, SourceTelegram:
		return src, nil
	default:
		return "", fmt.Errorf("unknown import source %q", s)
	}
}

// Store is the part of the storage the importer writes to.
type Store interface {
	filtering.ExistenceChecker
	// CreateCandidates stores all of batch or none of it.
	CreateCandidates(ctx context.Context, batch []*profile.Candidate) error
}

// Options configures an Importer.
type Options struct {
	Filter *filtering.Config
	// AllowDuplicates keeps candidates whose fingerprint is already stored.
	AllowDuplicates bool
	Logger          *zap.Logger
}

// Result reports the outcome of one import.
type Result struct {
	Created []*profile.Candidate `json:"created"`
	Skipped int                  `json:"skipped"`
	// Filters lists the import filters as they were configured for this run.
	Filters []filtering.Status `json:"filters"`
}

type Importer struct {
	store Store
	opts  Options
	log   *zap.Logger
}

func New(store Store, opts Options) *Importer {
	return &Importer{
		store: store,
		opts:  opts,
		log:   logger.Component(opts.Logger, "importer"),
	}
}

// ImportCSV parses r as a candidates CSV and stores the result.
func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (*Result, error) {
	batch, err := ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return i.Import(ctx, SourceCSV, batch)
}

// ImportJSON decodes board items and stores the result.
func (i *Importer) ImportJSON(ctx context.Context, source Source, items []map[string]any) (*Result, error) {
	batch, err := DecodeJSON(source, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return i.Import(ctx, source, batch)
}

// Import filters the batch and stores the remaining candidates in order,
// all or none.
func (i *Importer) Import(ctx context.Context, source Source, batch []*profile.Candidate) (*Result, error) {
	log := i.log.With(zap.String(logger.FieldSource, string(source)))

	steps := filtering.Default()
	if i.opts.AllowDuplicates {
		filtering.DisableByName(steps, "stored_duplicates", "duplicates allowed")
	}

	kept, skipped, err := filtering.Run(ctx, i.opts.Filter, filtering.Deps{Store: i.store, Logger: log}, steps, batch)
	if err != nil {
		return nil, fmt.Errorf("filtering %s import: %w", source, err)
	}

	if err := i.store.CreateCandidates(ctx, kept); err != nil {
		return nil, fmt.Errorf("storing %s import: %w", source, err)
	}

	filters := filtering.Describe(steps)
	log.Info("import finished",
		zap.Int("received", len(batch)),
		zap.Int("created", len(kept)),
		zap.Int("skipped", skipped),
		zap.Any("filters", filters),
	)

	return &Result{Created: kept, Skipped: skipped, Filters: filters}, nil
}
