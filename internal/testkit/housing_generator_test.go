package testkit

import (
	"bytes"
	"encoding/csv"
	"testing"

	"anovadash/domain/dataset"
)

func TestHousingGenerator_Shape(t *testing.T) {
	generator := NewHousingGenerator(DefaultHousingConfig())
	headers, rows := generator.Generate()

	if len(headers) != 7 {
		t.Fatalf("expected 7 headers, got %d", len(headers))
	}
	if len(rows) != 2930 {
		t.Fatalf("expected 2930 rows, got %d", len(rows))
	}

	counts := make(map[string]int)
	blanks := 0
	for i, row := range rows {
		if len(row) != len(headers) {
			t.Fatalf("row %d has %d cells", i, len(row))
		}
		counts[row[3]]++
		if row[5] == "" {
			blanks++
		}
	}
	if counts["NAmes"] < 440 || counts["Greens"] < 2 {
		t.Errorf("unexpected neighborhood counts: NAmes=%d Greens=%d", counts["NAmes"], counts["Greens"])
	}
	if blanks != 2 {
		t.Errorf("expected 2 missing basement baths, got %d", blanks)
	}
}

func TestHousingGenerator_Deterministic(t *testing.T) {
	_, first := NewHousingGenerator(DefaultHousingConfig()).Generate()
	_, second := NewHousingGenerator(DefaultHousingConfig()).Generate()

	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("row %d col %d differs: %q vs %q", i, j, first[i][j], second[i][j])
			}
		}
	}
}

func TestHousingGenerator_TableNormalizesHeaders(t *testing.T) {
	table, err := NewHousingGenerator(DefaultHousingConfig()).Table()
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, name := range []string{"MS_SubClass", "House_Style", "Bsmt_Full_Bath", "SalePrice"} {
		if _, err := table.Column(name); err != nil {
			t.Errorf("missing column %s: %v", name, err)
		}
	}

	price, _ := table.Column("SalePrice")
	if price.Kind != dataset.KindNumeric {
		t.Errorf("SalePrice should be numeric, got %s", price.Kind)
	}
	baths, _ := table.Column("Bsmt_Full_Bath")
	if baths.Missing() != 2 {
		t.Errorf("expected 2 missing baths, got %d", baths.Missing())
	}
}

func TestHousingGenerator_WriteCSV(t *testing.T) {
	config := DefaultHousingConfig()
	config.Rows = 50
	var buf bytes.Buffer
	if err := NewHousingGenerator(config).WriteCSV(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 51 {
		t.Fatalf("expected header + 50 rows, got %d", len(records))
	}
	if records[0][4] != "House Style" {
		t.Errorf("expected spaced header, got %q", records[0][4])
	}
}
