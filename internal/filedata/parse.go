package filedata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

// filePayload is the on-disk shape of one flag data file. JSON files
// parse fine through the YAML decoder, so one format handles both.
type filePayload struct {
	Flags    map[string]domain.Flag    `yaml:"flags"`
	Segments map[string]domain.Segment `yaml:"segments"`
}

// loadFiles parses every file and merges them into one snapshot. A flag
// or segment key defined by more than one file is an error rather than
// a silent override.
func loadFiles(paths []string) (*domain.Snapshot, error) {
	flags := make(map[string]domain.Flag)
	segments := make(map[string]domain.Segment)

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read flag data file: %w", err)
		}

		var payload filePayload
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("parse flag data file %q: %w", path, err)
		}

		for key, flag := range payload.Flags {
			if _, exists := flags[key]; exists {
				return nil, fmt.Errorf("flag %q defined in more than one file", key)
			}
			if flag.Key == "" {
				flag.Key = key
			}
			flags[key] = flag
		}
		for key, segment := range payload.Segments {
			if _, exists := segments[key]; exists {
				return nil, fmt.Errorf("segment %q defined in more than one file", key)
			}
			if segment.Key == "" {
				segment.Key = key
			}
			segments[key] = segment
		}
	}

	return domain.NewSnapshot(flags, segments), nil
}
