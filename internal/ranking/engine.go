package ranking

import (
	"log/slog"
)

// Rating captures one entity's standing on one metric.
type Rating struct {
	Metric     string  `json:"metric"`
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Available  bool    `json:"available"`
	Display    string  `json:"display"`
	Percentile int     `json:"percentile"`
	Grade      Grade   `json:"grade"`
}

// LeaderboardRow is a ranked entity decorated for display.
type LeaderboardRow struct {
	Rank       int     `json:"rank"`
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Display    string  `json:"display"`
	Percentile int     `json:"percentile"`
	Grade      Grade   `json:"grade"`
}

// ComparisonCell is one selected entity's value on one metric.
type ComparisonCell struct {
	ID         string  `json:"id"`
	Value      float64 `json:"value"`
	Available  bool    `json:"available"`
	Display    string  `json:"display"`
	Percentile int     `json:"percentile"`
	Grade      Grade   `json:"grade"`
	Leader     bool    `json:"leader"`
}

// ComparisonRow holds every selected entity's cell for one metric plus the
// population average.
type ComparisonRow struct {
	Metric         Metric           `json:"metric"`
	Average        float64          `json:"average"`
	HasAverage     bool             `json:"has_average"`
	AverageDisplay string           `json:"average_display"`
	Cells          []ComparisonCell `json:"cells"`
}

// EntityRef identifies a selected entity in a comparison.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ComparisonTable is the side-by-side view of selected entities.
type ComparisonTable struct {
	Entities []EntityRef     `json:"entities"`
	Rows     []ComparisonRow `json:"rows"`
}

// Engine applies percentile ranking and grading using a configured scheme.
type Engine struct {
	scheme    Scheme
	idField   string
	nameField string
	logger    *slog.Logger
}

// NewEngine creates an Engine. Empty field names default to "id" and "name".
func NewEngine(scheme Scheme, idField, nameField string, logger *slog.Logger) *Engine {
	if idField == "" {
		idField = "id"
	}
	if nameField == "" {
		nameField = "name"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		scheme:    scheme,
		idField:   idField,
		nameField: nameField,
		logger:    logger,
	}
}

// WithScheme returns a copy of the engine grading with s.
func (e *Engine) WithScheme(s Scheme) *Engine {
	cp := *e
	cp.scheme = s
	return &cp
}

// Scheme returns the grading scheme in use.
func (e *Engine) Scheme() Scheme { return e.scheme }

// IDField returns the entity field used as identity.
func (e *Engine) IDField() string { return e.idField }

// Ref returns the identity of ent using the configured id and name fields.
func (e *Engine) Ref(ent Entity) EntityRef {
	return EntityRef{ID: ent.String(e.idField), Name: ent.String(e.nameField)}
}

// Rate computes the rating of ent on m against pop. Missing or non-numeric values
// degrade to percentile 0 and an N/A display.
func (e *Engine) Rate(ent Entity, m Metric, pop Population) Rating {
	v, ok := ent.Value(m.Key)
	pct := 0
	if ok {
		pct = Percentile(v, pop.Values(m.Key), m.IsNegative)
	}
	return Rating{
		Metric:     m.Key,
		Label:      m.DisplayLabel(),
		Value:      v,
		Available:  ok,
		Display:    m.FormatValue(v, ok),
		Percentile: pct,
		Grade:      e.scheme.Grade(pct),
	}
}

// RateAll rates ent on every metric.
func (e *Engine) RateAll(ent Entity, metrics []Metric, pop Population) []Rating {
	out := make([]Rating, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, e.Rate(ent, m, pop))
	}
	return out
}

// Leaderboard returns the top limit entities by m, graded against the full population.
func (e *Engine) Leaderboard(pop Population, m Metric, limit int) []LeaderboardRow {
	values := pop.Values(m.Key)
	ranked := Leaderboard(pop, m, limit)

	rows := make([]LeaderboardRow, 0, len(ranked))
	for _, r := range ranked {
		pct := Percentile(r.Value, values, m.IsNegative)
		rows = append(rows, LeaderboardRow{
			Rank:       r.Rank,
			ID:         r.Entity.String(e.idField),
			Name:       r.Entity.String(e.nameField),
			Value:      r.Value,
			Display:    m.FormatValue(r.Value, true),
			Percentile: pct,
			Grade:      e.scheme.Grade(pct),
		})
	}
	e.logger.Debug("leaderboard computed", "metric", m.Key, "population", len(pop), "ranked", len(rows))
	return rows
}

// Compare builds a comparison table for the selected entities. Percentiles and
// averages are computed against the full population, and the best selected value
// on each metric is flagged as leader (all tied entities lead).
func (e *Engine) Compare(selected []Entity, metrics []Metric, pop Population) ComparisonTable {
	table := ComparisonTable{
		Entities: make([]EntityRef, 0, len(selected)),
		Rows:     make([]ComparisonRow, 0, len(metrics)),
	}
	for _, ent := range selected {
		table.Entities = append(table.Entities, e.Ref(ent))
	}

	missing := 0
	for _, m := range metrics {
		avg, hasAvg := Average(pop, m.Key)
		row := ComparisonRow{
			Metric:         m,
			Average:        avg,
			HasAverage:     hasAvg,
			AverageDisplay: m.FormatValue(avg, hasAvg),
			Cells:          make([]ComparisonCell, 0, len(selected)),
		}

		var best float64
		haveBest := false
		for _, ent := range selected {
			r := e.Rate(ent, m, pop)
			if !r.Available {
				missing++
			}
			row.Cells = append(row.Cells, ComparisonCell{
				ID:         ent.String(e.idField),
				Value:      r.Value,
				Available:  r.Available,
				Display:    r.Display,
				Percentile: r.Percentile,
				Grade:      r.Grade,
			})
			if r.Available && (!haveBest || better(m, r.Value, best)) {
				best = r.Value
				haveBest = true
			}
		}
		if haveBest {
			for i := range row.Cells {
				row.Cells[i].Leader = row.Cells[i].Available && row.Cells[i].Value == best
			}
		}
		table.Rows = append(table.Rows, row)
	}
	e.logger.Debug("comparison computed",
		"selected", len(selected),
		"metrics", len(metrics),
		"population", len(pop),
		"missing_cells", missing,
	)
	return table
}
