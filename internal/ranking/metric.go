package ranking

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// NotAvailable is the display value for missing or non-numeric data.
const NotAvailable = "N/A"

// Entity is a team, player or game record as delivered by the stats API.
// Fields are referenced by key; values may be numeric, strings or missing.
type Entity map[string]any

// Population is an ordered set of entities sharing comparable metrics.
type Population []Entity

// Metric describes how a field is compared and displayed.
type Metric struct {
	Key        string `json:"key" yaml:"key"`
	Label      string `json:"label" yaml:"label"`
	IsNegative bool   `json:"is_negative" yaml:"is_negative"` // lower raw values are better
	Precision  int    `json:"precision" yaml:"precision"`
}

// Value returns the metric value of e and whether it is numeric.
func (e Entity) Value(key string) (float64, bool) {
	v, ok := e[key]
	if !ok {
		return 0, false
	}
	return NumericValue(v)
}

// String returns a field as a string, or "" when it is absent.
// Numeric identifiers are rendered without a fractional part.
func (e Entity) String(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		if f, ok := NumericValue(v); ok {
			return humanize.Ftoa(f)
		}
		return ""
	}
}

// NumericValue converts a decoded field value to float64. Strings, booleans,
// nil, NaN and infinities are not numeric.
func NumericValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Values extracts the numeric values of key across the population, skipping
// entities where the field is missing or non-numeric.
func (p Population) Values(key string) []float64 {
	out := make([]float64, 0, len(p))
	for _, e := range p {
		if v, ok := e.Value(key); ok {
			out = append(out, v)
		}
	}
	return out
}

// Filter returns the entities whose field equals value (case-insensitive).
// An empty field returns the population unchanged.
func (p Population) Filter(field, value string) Population {
	if field == "" {
		return p
	}
	var out Population
	for _, e := range p {
		if strings.EqualFold(e.String(field), value) {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first entity whose idField matches id.
func (p Population) Find(idField, id string) (Entity, bool) {
	for _, e := range p {
		if e.String(idField) == id {
			return e, true
		}
	}
	return nil, false
}

// FormatValue renders a value with exactly the metric's precision and
// thousands separators in the integer part.
func (m Metric) FormatValue(v float64, ok bool) string {
	if !ok {
		return NotAvailable
	}
	precision := m.Precision
	if precision < 0 {
		precision = 0
	}
	s := strconv.FormatFloat(v, 'f', precision, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return sign + s
	}
	out := humanize.Comma(n)
	if hasFrac {
		out += "." + frac
	}
	// -0.04 at precision 1 renders as 0.0, not -0.0
	if strings.Trim(out, "0.,") == "" {
		sign = ""
	}
	return sign + out
}

// DisplayLabel returns the label, falling back to the key.
func (m Metric) DisplayLabel() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Key
}
