package workout

import "time"

// Status is the outcome of a run.
type Status string

// Run outcomes.
const (
	StatusPass      Status = "pass"
	StatusFail      Status = "fail"
	StatusCancelled Status = "cancelled"
)

// OpStats aggregates one kind of operation.
type OpStats struct {
	// Total is the number of operations.
	Total int `json:"total" yaml:"total"`
	// Hits is the number of operations that found their key.
	Hits int `json:"hits" yaml:"hits"`
	// Elapsed is the time spent inside the map.
	Elapsed time.Duration `json:"elapsed_ns" yaml:"elapsed"`
}

// Misses is the number of operations whose key was absent.
func (s OpStats) Misses() int {
	return s.Total - s.Hits
}

// PerOp is the mean time per operation.
func (s OpStats) PerOp() time.Duration {
	if s.Total == 0 {
		return 0
	}

	return s.Elapsed / time.Duration(s.Total)
}

func (s *OpStats) add(hit bool, elapsed time.Duration) {
	s.Total++
	s.Elapsed += elapsed

	if hit {
		s.Hits++
	}
}

// Sample is a snapshot of the tree shape.
type Sample struct {
	Op          int `json:"op"           yaml:"op"`
	Size        int `json:"size"         yaml:"size"`
	Height      int `json:"height"       yaml:"height"`
	BlackHeight int `json:"black_height" yaml:"black_height"`
}

// Report is the result of a run. A failed or cancelled run still returns the
// report of what was done up to that point.
type Report struct {
	Settings Settings `json:"settings" yaml:"settings"`
	Status   Status   `json:"status"   yaml:"status"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`

	// Completed is the number of random operations done, excluding the drain.
	Completed int     `json:"completed" yaml:"completed"`
	Inserts   OpStats `json:"inserts"   yaml:"inserts"`
	Removes   OpStats `json:"removes"   yaml:"removes"`
	Gets      OpStats `json:"gets"      yaml:"gets"`
	// Drained is the number of entries removed after the random phase.
	Drained int `json:"drained" yaml:"drained"`

	Checks       int `json:"checks"       yaml:"checks"`
	Hibernations int `json:"hibernations" yaml:"hibernations"`
	// HibernatedBytes is the compressed arena size at the last hibernation.
	HibernatedBytes int `json:"hibernated_bytes" yaml:"hibernated_bytes"`

	MaxSize      int    `json:"max_size"      yaml:"max_size"`
	MaxHeight    int    `json:"max_height"    yaml:"max_height"`
	Rotations    uint64 `json:"rotations"     yaml:"rotations"`
	InsertFixups uint64 `json:"insert_fixups" yaml:"insert_fixups"`
	DeleteFixups uint64 `json:"delete_fixups" yaml:"delete_fixups"`
	// ArenaSlots is the final allocator size, reserved slot included.
	ArenaSlots int `json:"arena_slots" yaml:"arena_slots"`

	Duration time.Duration `json:"duration_ns" yaml:"duration"`
	Samples  []Sample      `json:"samples"     yaml:"samples"`
}

// TotalOps is the number of map operations, drain included.
func (r *Report) TotalOps() int {
	return r.Inserts.Total + r.Removes.Total + r.Gets.Total
}
