package filtering

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/profile"
)

type excludedFilter struct {
	emails map[string]struct{}
	path   string
}

// NewExcluded creates a filter that drops candidates whose email is listed in
// the config or in the exclude file.
func NewExcluded() Filter {
	return &excludedFilter{}
}

func (f *excludedFilter) Name() string { return "excluded_emails" }

func (f *excludedFilter) Disable(string) {}

func (f *excludedFilter) IsEnabled() bool { return true }

func (f *excludedFilter) Validate(cfg *Config) error {
	f.emails = make(map[string]struct{})
	f.path = ""
	if cfg == nil {
		return nil
	}

	for _, email := range cfg.ExcludeEmails {
		f.add(email)
	}

	f.path = strings.TrimSpace(cfg.ExcludeFile)
	if f.path == "" {
		return nil
	}

	emails, err := readExcludeFile(f.path)
	if err != nil {
		return fmt.Errorf("getting excluded emails from file: %w", err)
	}
	for _, email := range emails {
		f.add(email)
	}
	return nil
}

func (f *excludedFilter) add(email string) {
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		f.emails[email] = struct{}{}
	}
}

func (f *excludedFilter) Apply(_ context.Context, deps Deps, batch []*profile.Candidate) ([]*profile.Candidate, Step, error) {
	initial := len(batch)
	if len(f.emails) == 0 {
		return batch, Step{Initial: initial, Left: initial}, nil
	}

	kept, removed, _ := keep(batch, func(c *profile.Candidate) (bool, error) {
		_, excluded := f.emails[strings.ToLower(strings.TrimSpace(c.Email))]
		return !excluded, nil
	})

	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding candidates by email",
			zap.Strings("excluded_candidates", names(removed)),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludedFilter) Status() Status {
	details := map[string]string{"emails": strconv.Itoa(len(f.emails))}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

// readExcludeFile reads one email per line. Blank lines and # comments are skipped.
func readExcludeFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var emails []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		emails = append(emails, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return emails, nil
}
