package domain

import "github.com/google/uuid"

// Snapshot is one still frame grabbed from a video source, already scaled
// to the configured output size and encoded as PNG.
type Snapshot struct {
	Index  int     `json:"index"`
	AtSec  float64 `json:"at_sec"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	PNG    []byte  `json:"-"`
}

// SnapshotSet is the ordered frame collection produced from a single video
// source. A session keeps at most one set; the last delivered set wins.
type SnapshotSet struct {
	SourceID    uuid.UUID  `json:"source_id"`
	SourceName  string     `json:"source_name"`
	IntervalSec float64    `json:"interval_sec"`
	DurationSec float64    `json:"duration_sec"`
	Snapshots   []Snapshot `json:"snapshots"`
}

// Clone deep-copies the set, including the PNG payloads.
func (s SnapshotSet) Clone() SnapshotSet {
	out := s
	if s.Snapshots != nil {
		out.Snapshots = make([]Snapshot, len(s.Snapshots))
		for i, snap := range s.Snapshots {
			cp := snap
			cp.PNG = append([]byte(nil), snap.PNG...)
			out.Snapshots[i] = cp
		}
	}
	return out
}
