package domain

// Flag is the canonical feature flag shape carried by the service.
// Evaluation semantics live in consumers; this service only tracks
// identity, versioning, and the raw toggle state.
type Flag struct {
	Key     string `json:"key" yaml:"key"`
	Version int    `json:"version" yaml:"version"`
	On      bool   `json:"on" yaml:"on"`
	Deleted bool   `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Segment is a named group of targeting contexts referenced by flags.
type Segment struct {
	Key      string   `json:"key" yaml:"key"`
	Version  int      `json:"version" yaml:"version"`
	Included []string `json:"included,omitempty" yaml:"included,omitempty"`
	Excluded []string `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Deleted  bool     `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Snapshot is the complete remote state as of one successful fetch:
// every flag and segment keyed by its identifier. A snapshot is built
// once and never mutated afterwards.
type Snapshot struct {
	Flags    map[string]Flag    `json:"flags" yaml:"flags"`
	Segments map[string]Segment `json:"segments" yaml:"segments"`
}

// NewSnapshot builds a Snapshot, normalizing nil maps to empty ones so
// an empty remote environment is still a valid, applicable snapshot.
func NewSnapshot(flags map[string]Flag, segments map[string]Segment) *Snapshot {
	if flags == nil {
		flags = make(map[string]Flag)
	}
	if segments == nil {
		segments = make(map[string]Segment)
	}
	return &Snapshot{
		Flags:    flags,
		Segments: segments,
	}
}
