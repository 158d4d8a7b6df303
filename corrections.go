package docqa

import "fmt"

// Correction is the result of looking up a document identifier.
type Correction struct {
	// ID is the identifier to send: the replacement when Corrected, else the input.
	ID string

	// Corrected reports whether ID differs from the input.
	Corrected bool

	// Note describes the substitution for display; empty when nothing changed.
	Note string
}

// Corrector rewrites document identifiers known to be wrong.
// It exists to work around identifiers that the upload path reported incorrectly;
// swap in NopCorrector once the upstream identifiers are consistent.
type Corrector interface {
	Correct(id string) Correction
}

// StaticCorrector looks identifiers up in a fixed table. It is immutable after
// construction and safe for concurrent use.
type StaticCorrector struct {
	table map[string]string
}

// NewStaticCorrector copies table; later changes to the caller's map have no effect.
// Entries mapping an identifier to itself or to "" are ignored.
func NewStaticCorrector(table map[string]string) *StaticCorrector {
	copied := make(map[string]string, len(table))
	for from, to := range table {
		if to == "" || to == from {
			continue
		}
		copied[from] = to
	}
	return &StaticCorrector{table: copied}
}

// DefaultCorrections returns the known identifier mismatches.
func DefaultCorrections() map[string]string {
	return map[string]string{
		"31c3fea0-1baf-43a1-823e-6070e6ef6088": "31c3fab0-1baf-41a1-837d-687bf6bfdd88",
	}
}

// Correct implements Corrector.
func (c *StaticCorrector) Correct(id string) Correction {
	to, ok := c.table[id]
	if !ok {
		return Correction{ID: id}
	}
	return Correction{
		ID:        to,
		Corrected: true,
		Note: fmt.Sprintf("Auto-correction applied: Document ID mismatch detected and fixed. Using: %s...",
			shortID(to)),
	}
}

// Len returns the number of entries.
func (c *StaticCorrector) Len() int {
	return len(c.table)
}

// NopCorrector passes every identifier through unchanged.
type NopCorrector struct{}

// Correct implements Corrector.
func (NopCorrector) Correct(id string) Correction {
	return Correction{ID: id}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
