package domain

import (
	"fmt"
	"strings"
)

// Space identifies a precomputed embedding space: one embedding model (plus its
// instruction template, if any) paired with the document matrix it produced.
type Space int

// Embedding spaces. The set is closed; adding a space means shipping a new matrix.
const (
	// Deep is the high-quality, slower instructor-family space. Queries are wrapped
	// with the instruction recorded in the matrix manifest.
	Deep Space = iota + 1
	// FastMultilingual is the fast multilingual distiluse-family space. No template.
	FastMultilingual
)

// AllSpaces lists every space in display order.
var AllSpaces = []Space{Deep, FastMultilingual}

// String returns the canonical config/API name of the space.
func (s Space) String() string {
	switch s {
	case Deep:
		return "deep"
	case FastMultilingual:
		return "fast"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// Label returns the human-facing mode label shown in the UI.
func (s Space) Label() string {
	switch s {
	case Deep:
		return "Profundidad (Instructor)"
	case FastMultilingual:
		return "Relevancia y velocidad (Distiluse)"
	default:
		return s.String()
	}
}

// UsesInstruction reports whether queries in this space are wrapped with an instruction.
func (s Space) UsesInstruction() bool { return s == Deep }

// IsValid checks if the space is one of the supported values.
func (s Space) IsValid() bool {
	return s == Deep || s == FastMultilingual
}

// ParseSpace maps a canonical name or a legacy mode label to a Space.
func ParseSpace(name string) (Space, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "deep", n == "instructor", strings.Contains(n, "(instructor)"):
		return Deep, nil
	case n == "fast", n == "distiluse", n == "fast_multilingual", strings.Contains(n, "(distiluse)"):
		return FastMultilingual, nil
	default:
		return 0, fmt.Errorf("%w: unknown embedding space %q", ErrInvalidInput, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Space) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: invalid embedding space %d", ErrInvalidInput, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Space) UnmarshalText(text []byte) error {
	parsed, err := ParseSpace(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
