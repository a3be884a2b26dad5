package importer

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/smartmatch/internal/profile"
)

// DecodeJSON converts loosely typed profile objects from a job board or chat
// export into candidates. Numbers given as strings are accepted. A missing
// source is set to the board label.
func DecodeJSON(source Source, items []map[string]any) ([]*profile.Candidate, error) {
	candidates := make([]*profile.Candidate, 0, len(items))
	for i, item := range items {
		c := &profile.Candidate{}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           c,
		})
		if err != nil {
			return nil, fmt.Errorf("creating decoder: %w", err)
		}

		if err := decoder.Decode(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		c.ID = 0
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("item %d: name is required", i)
		}
		if c.Source == "" {
			c.Source = source.Label()
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}
