package profiling

import (
	"math"
	"sort"

	"anovadash/domain/dataset"
	"anovadash/domain/stats"
)

// ColumnDescription is one row of the column dictionary
type ColumnDescription struct {
	Name        string             `json:"name"`
	Kind        dataset.ColumnKind `json:"kind"`
	Description string             `json:"description"`
	Missing     int                `json:"missing"`
	Distinct    int                `json:"distinct"`
}

// DescribeColumns lists every column with its kind and the description from
// the analysis profile, empty when unknown
func DescribeColumns(table *dataset.Table, descriptions map[string]string) []ColumnDescription {
	out := make([]ColumnDescription, 0, len(table.Columns))
	for _, col := range table.Columns {
		distinct := make(map[string]bool)
		for _, cell := range col.Cells {
			if !dataset.IsMissing(cell) {
				distinct[cell] = true
			}
		}
		out = append(out, ColumnDescription{
			Name:        col.Name,
			Kind:        col.Kind,
			Description: descriptions[col.Name],
			Missing:     col.Missing(),
			Distinct:    len(distinct),
		})
	}
	return out
}

// ColumnSummary is a describe row tagged with its column
type ColumnSummary struct {
	Column string `json:"column"`
	Summary
}

// DescribeTable summarizes every numeric column
func DescribeTable(table *dataset.Table) ([]ColumnSummary, error) {
	var out []ColumnSummary
	for _, col := range table.Columns {
		if col.Kind != dataset.KindNumeric {
			continue
		}
		values, err := table.Numeric(col.Name)
		if err != nil {
			return nil, err
		}
		summary, err := Summarize(values)
		if err != nil {
			return nil, err
		}
		out = append(out, ColumnSummary{Column: col.Name, Summary: summary})
	}
	return out, nil
}

// BoxSummary is the five-number summary of one group
type BoxSummary struct {
	Group  string  `json:"group"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// BoxSummaries returns one box per group, ordered by group label
func BoxSummaries(sample stats.GroupedSample) ([]BoxSummary, error) {
	out := make([]BoxSummary, 0, sample.K())
	for _, g := range sample.Groups {
		s, err := Summarize(g.Values)
		if err != nil {
			return nil, err
		}
		out = append(out, BoxSummary{
			Group:  g.Label,
			N:      s.Count,
			Mean:   s.Mean,
			Min:    s.Min,
			Q1:     s.Q25,
			Median: s.Median,
			Q3:     s.Q75,
			Max:    s.Max,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}

// Range returns the smallest and largest whisker ends across boxes
func Range(boxes []BoxSummary) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		lo = math.Min(lo, b.Min)
		hi = math.Max(hi, b.Max)
	}
	return lo, hi
}
