package testutil

import (
	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

// SampleFlag returns a minimal flag fixture with the provided key and version.
func SampleFlag(key string, version int) domain.Flag {
	return domain.Flag{
		Key:     key,
		Version: version,
		On:      true,
	}
}

// SampleSegment returns a minimal segment fixture with the provided key and version.
func SampleSegment(key string, version int) domain.Segment {
	return domain.Segment{
		Key:      key,
		Version:  version,
		Included: []string{"user-1"},
	}
}

// SampleSnapshot builds a snapshot holding one flag and one segment.
func SampleSnapshot(flagKey, segmentKey string, version int) *domain.Snapshot {
	return domain.NewSnapshot(
		map[string]domain.Flag{flagKey: SampleFlag(flagKey, version)},
		map[string]domain.Segment{segmentKey: SampleSegment(segmentKey, version)},
	)
}
