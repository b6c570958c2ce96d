package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strconv"

	"anovadash/domain/dataset"
)

// level is one category with its share of rows and its effect on log price
type level struct {
	Name   string
	Weight int
	Effect float64
}

// Ames-like category frequencies; weights are the counts at 2930 rows.
var (
	neighborhoods = []level{
		{"NAmes", 443, 0}, {"CollgCr", 267, 0.15}, {"OldTown", 239, -0.25},
		{"Edwards", 194, -0.2}, {"Somerst", 182, 0.3}, {"NridgHt", 166, 0.6},
		{"Gilbert", 165, 0.1}, {"Sawyer", 151, -0.15}, {"NWAmes", 131, 0.12},
		{"SawyerW", 125, 0.1}, {"Mitchel", 114, 0}, {"BrkSide", 108, -0.3},
		{"Crawfor", 103, 0.15}, {"IDOTRR", 93, -0.45}, {"Timber", 72, 0.4},
		{"NoRidge", 71, 0.65}, {"StoneBr", 51, 0.7}, {"SWISU", 48, -0.2},
		{"ClearCr", 44, 0.25}, {"MeadowV", 37, -0.5}, {"BrDale", 30, -0.45},
		{"Blmngtn", 28, 0.2}, {"Veenker", 24, 0.35}, {"NPkVill", 23, -0.1},
		{"Blueste", 10, -0.1}, {"Greens", 8, 0.05},
	}
	houseStyles = []level{
		{"1Story", 1481, 0}, {"2Story", 873, 0.12}, {"1.5Fin", 314, -0.1},
		{"SLvl", 128, 0}, {"SFoyer", 83, -0.08}, {"2.5Unf", 24, 0.05},
		{"1.5Unf", 19, -0.25}, {"2.5Fin", 8, 0.15},
	}
	basementBaths = []level{
		{"0", 1707, 0}, {"1", 1181, 0.08}, {"2", 23, 0.1}, {"3", 2, 0.1},
	}
	subClasses = []level{
		{"20", 1079, 0}, {"60", 575, 0}, {"50", 287, 0}, {"120", 192, 0},
		{"30", 139, 0}, {"160", 129, 0}, {"70", 128, 0}, {"80", 118, 0},
		{"90", 109, 0}, {"190", 61, 0}, {"85", 48, 0}, {"75", 23, 0},
		{"45", 18, 0}, {"180", 17, 0}, {"40", 6, 0}, {"150", 1, 0},
	}
)

// HousingGeneratorConfig configures the synthetic housing table
type HousingGeneratorConfig struct {
	Rows          int     `json:"rows"`
	Seed          int64   `json:"seed"`
	BaseLogPrice  float64 `json:"base_log_price"`
	LogPriceSD    float64 `json:"log_price_sd"`
	MissingBaths  int     `json:"missing_baths"`
	SpacedHeaders bool    `json:"spaced_headers"`
}

// DefaultHousingConfig mirrors the size and shape of the Ames housing data
func DefaultHousingConfig() HousingGeneratorConfig {
	return HousingGeneratorConfig{
		Rows:          2930,
		Seed:          42,
		BaseLogPrice:  11.95,
		LogPriceSD:    0.3,
		MissingBaths:  2,
		SpacedHeaders: true,
	}
}

// HousingGenerator generates a seeded Ames-like sales table
type HousingGenerator struct {
	config HousingGeneratorConfig
	rng    *rand.Rand
}

// NewHousingGenerator creates a new housing generator
func NewHousingGenerator(config HousingGeneratorConfig) *HousingGenerator {
	if config.Rows <= 0 {
		config.Rows = DefaultHousingConfig().Rows
	}
	return &HousingGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Headers returns the column names, with spaces like the raw Ames export
// when SpacedHeaders is set
func (g *HousingGenerator) Headers() []string {
	if g.config.SpacedHeaders {
		return []string{"Order", "PID", "MS SubClass", "Neighborhood", "House Style", "Bsmt Full Bath", "SalePrice"}
	}
	return []string{"Order", "PID", "MS_SubClass", "Neighborhood", "House_Style", "Bsmt_Full_Bath", "SalePrice"}
}

// Generate returns the header and row-major cells. Category counts are fixed
// by the weights; only their row order and the prices are random.
func (g *HousingGenerator) Generate() ([]string, [][]string) {
	n := g.config.Rows
	nbhd := g.column(neighborhoods)
	style := g.column(houseStyles)
	bath := g.column(basementBaths)
	sub := g.column(subClasses)

	// blanks only come from the most common level so rare levels keep their counts
	missing := make(map[int]bool, g.config.MissingBaths)
	for _, i := range g.rng.Perm(n) {
		if len(missing) >= g.config.MissingBaths {
			break
		}
		if bath[i].Name == basementBaths[0].Name {
			missing[i] = true
		}
	}

	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		logPrice := g.config.BaseLogPrice + nbhd[i].Effect + style[i].Effect + bath[i].Effect +
			g.config.LogPriceSD*g.rng.NormFloat64()
		bathCell := bath[i].Name
		if missing[i] {
			bathCell = ""
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%010d", 526301100+g.rng.Intn(400000000)),
			sub[i].Name,
			nbhd[i].Name,
			style[i].Name,
			bathCell,
			strconv.Itoa(int(math.Round(math.Exp(logPrice)))),
		}
	}
	return g.Headers(), rows
}

// Table generates the data as a dataset table with normalized headers
func (g *HousingGenerator) Table() (*dataset.Table, error) {
	headers, rows := g.Generate()
	table, err := dataset.NewTable("synthetic_ames", headers, rows)
	if err != nil {
		return nil, err
	}
	table.RenameColumns(dataset.NormalizeHeader)
	return table, nil
}

// WriteCSV writes the generated table as CSV
func (g *HousingGenerator) WriteCSV(w io.Writer) error {
	headers, rows := g.Generate()
	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// column allocates rows to levels by largest remainder, then shuffles them
func (g *HousingGenerator) column(levels []level) []level {
	n := g.config.Rows
	total := 0
	for _, l := range levels {
		total += l.Weight
	}

	type share struct {
		index     int
		remainder float64
	}
	counts := make([]int, len(levels))
	shares := make([]share, len(levels))
	assigned := 0
	for i, l := range levels {
		exact := float64(l.Weight) * float64(n) / float64(total)
		counts[i] = int(exact)
		assigned += counts[i]
		shares[i] = share{index: i, remainder: exact - float64(counts[i])}
	}
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].remainder > shares[b].remainder })
	for i := 0; assigned < n; i++ {
		counts[shares[i%len(shares)].index]++
		assigned++
	}

	out := make([]level, 0, n)
	for i, l := range levels {
		for c := 0; c < counts[i]; c++ {
			out = append(out, l)
		}
	}
	g.rng.Shuffle(len(out), func(a, b int) { out[a], out[b] = out[b], out[a] })
	return out
}
