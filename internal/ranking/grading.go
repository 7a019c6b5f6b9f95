package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownScheme = errors.New("unknown grading scheme")
	ErrInvalidScheme = errors.New("invalid grading scheme")
)

// Built-in scheme names.
const (
	SchemeTiers   = "tiers"
	SchemeLetters = "letters"
)

// Grade is one band of a grading scheme. Min is an inclusive lower bound.
type Grade struct {
	Label string `json:"label" yaml:"label"`
	Min   int    `json:"min" yaml:"min"`
	Color string `json:"color,omitempty" yaml:"color"`
}

// Scheme is an ordered threshold table, highest band first.
type Scheme struct {
	Name   string  `json:"name" yaml:"name"`
	Grades []Grade `json:"grades" yaml:"grades"`
}

// TierScheme returns the qualitative Elite..Very Poor scheme.
func TierScheme() Scheme {
	return Scheme{
		Name: SchemeTiers,
		Grades: []Grade{
			{Label: "Elite", Min: 90, Color: "#15803d"},
			{Label: "Great", Min: 75, Color: "#22c55e"},
			{Label: "Above Avg", Min: 60, Color: "#84cc16"},
			{Label: "Average", Min: 40, Color: "#eab308"},
			{Label: "Below Avg", Min: 25, Color: "#f97316"},
			{Label: "Poor", Min: 10, Color: "#ef4444"},
			{Label: "Very Poor", Min: 0, Color: "#991b1b"},
		},
	}
}

// LetterScheme returns the A+..F scheme.
func LetterScheme() Scheme {
	return Scheme{
		Name: SchemeLetters,
		Grades: []Grade{
			{Label: "A+", Min: 90, Color: "#15803d"},
			{Label: "A", Min: 85, Color: "#16a34a"},
			{Label: "A-", Min: 80, Color: "#22c55e"},
			{Label: "B+", Min: 75, Color: "#65a30d"},
			{Label: "B", Min: 70, Color: "#84cc16"},
			{Label: "B-", Min: 65, Color: "#a3e635"},
			{Label: "C+", Min: 55, Color: "#facc15"},
			{Label: "C", Min: 45, Color: "#eab308"},
			{Label: "C-", Min: 40, Color: "#f59e0b"},
			{Label: "D+", Min: 35, Color: "#fb923c"},
			{Label: "D", Min: 25, Color: "#f97316"},
			{Label: "D-", Min: 15, Color: "#ef4444"},
			{Label: "F", Min: 0, Color: "#991b1b"},
		},
	}
}

// Validate checks the table is non-empty, strictly descending and ends at 0.
func (s Scheme) Validate() error {
	if len(s.Grades) == 0 {
		return fmt.Errorf("%w: %q has no grades", ErrInvalidScheme, s.Name)
	}
	for i, g := range s.Grades {
		if strings.TrimSpace(g.Label) == "" {
			return fmt.Errorf("%w: %q grade %d has no label", ErrInvalidScheme, s.Name, i)
		}
		if g.Min < 0 || g.Min > 100 {
			return fmt.Errorf("%w: %q grade %s threshold %d out of range", ErrInvalidScheme, s.Name, g.Label, g.Min)
		}
		if i > 0 && g.Min >= s.Grades[i-1].Min {
			return fmt.Errorf("%w: %q thresholds must be strictly descending", ErrInvalidScheme, s.Name)
		}
	}
	if last := s.Grades[len(s.Grades)-1]; last.Min != 0 {
		return fmt.Errorf("%w: %q lowest threshold must be 0, got %d", ErrInvalidScheme, s.Name, last.Min)
	}
	return nil
}

// Grade maps an oriented percentile to its band. Percentiles are clamped to 0-100.
func (s Scheme) Grade(percentile int) Grade {
	p := clampPercentile(percentile)
	for _, g := range s.Grades {
		if p >= g.Min {
			return g
		}
	}
	if len(s.Grades) == 0 {
		return Grade{Label: NotAvailable}
	}
	return s.Grades[len(s.Grades)-1]
}

// Schemes is a registry of grading schemes keyed by lower-cased name.
type Schemes struct {
	byName map[string]Scheme
}

// NewSchemes returns a registry holding the built-in schemes plus any extras.
// Extras replace built-ins of the same name.
func NewSchemes(extra ...Scheme) (*Schemes, error) {
	r := &Schemes{byName: make(map[string]Scheme)}
	for _, s := range append([]Scheme{TierScheme(), LetterScheme()}, extra...) {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a scheme.
func (r *Schemes) Register(s Scheme) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: scheme name required", ErrInvalidScheme)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	r.byName[strings.ToLower(s.Name)] = s
	return nil
}

// Get looks up a scheme by name.
func (r *Schemes) Get(name string) (Scheme, error) {
	s, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Scheme{}, fmt.Errorf("%w: %s", ErrUnknownScheme, name)
	}
	return s, nil
}

// Names returns the registered scheme names in sorted order.
func (r *Schemes) Names() []string {
	names := make([]string, 0, len(r.byName))
	for _, s := range r.byName {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func clampPercentile(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
