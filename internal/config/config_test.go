package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anovadash/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"TARGET_COLUMN", "FACTOR_COLUMNS", "ALPHA", "ANALYSIS_PROFILE", "DATA_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "SalePrice", cfg.Analysis.Target)
	assert.Equal(t, []string{"Neighborhood", "House_Style", "Bsmt_Full_Bath"}, cfg.Analysis.Factors)
	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, "", cfg.Data.File)
	assert.Equal(t, "Final sale price of the house", cfg.Analysis.Descriptions["SalePrice"])
	assert.Equal(t, "Style of the dwelling", cfg.Analysis.Descriptions["House_Style"])
}

func TestDefaultProfile(t *testing.T) {
	p, err := DefaultProfile()
	require.NoError(t, err)
	assert.Equal(t, "ames", p.Name)
	assert.Empty(t, p.Target)
	assert.Empty(t, p.Factors)
	assert.Len(t, p.Descriptions, 7)

	// callers get their own copy
	d := DefaultDescriptions()
	d["SalePrice"] = "changed"
	assert.Equal(t, "Final sale price of the house", DefaultDescriptions()["SalePrice"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_PROFILE", "")
	t.Setenv("TARGET_COLUMN", "Lot_Area")
	t.Setenv("FACTOR_COLUMNS", " MS_SubClass , ,Neighborhood ")
	t.Setenv("ALPHA", "0.01")
	t.Setenv("ANALYSIS_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Lot_Area", cfg.Analysis.Target)
	assert.Equal(t, []string{"MS_SubClass", "Neighborhood"}, cfg.Analysis.Factors)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, 3, cfg.Analysis.Workers)
}

func TestLoad_InvalidAlpha(t *testing.T) {
	t.Setenv("ANALYSIS_PROFILE", "")
	t.Setenv("ALPHA", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoad_UnparseableEnv(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"ALPHA", "abc"},
		{"ANALYSIS_WORKERS", "four"},
		{"MULTI_FACTOR", "maybe"},
		{"INTERACTIONS", "yes please"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("ANALYSIS_PROFILE", "")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_ProfileOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ames.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "ames"
target = "SalePrice"
factors = ["Neighborhood", "House_Style"]
multi_factor = true
interactions = true
posthoc = "games_howell"

[descriptions]
SalePrice = "Sale price in USD"
Neighborhood = "Physical location within Ames city limits"
`), 0o644))

	t.Setenv("ANALYSIS_PROFILE", path)
	t.Setenv("FACTOR_COLUMNS", "Bsmt_Full_Bath")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Neighborhood", "House_Style"}, cfg.Analysis.Factors)
	assert.True(t, cfg.Analysis.Interactions)
	assert.Equal(t, "games_howell", cfg.Analysis.Posthoc)
	assert.Equal(t, "Sale price in USD", cfg.Analysis.Descriptions["SalePrice"])
	// entries the profile leaves out keep the built-in text
	assert.Equal(t, "Full bathrooms in the basement", cfg.Analysis.Descriptions["Bsmt_Full_Bath"])
}

func TestLoad_MissingProfile(t *testing.T) {
	t.Setenv("ANALYSIS_PROFILE", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestParseProfile_KeepsUnsetFlags(t *testing.T) {
	p, err := ParseProfile([]byte(`target = "y"`))
	require.NoError(t, err)
	assert.Nil(t, p.MultiFactor)

	cfg := &Config{Analysis: AnalysisConfig{MultiFactor: true, Factors: []string{"a"}}}
	p.Apply(cfg)
	assert.True(t, cfg.Analysis.MultiFactor)
	assert.Equal(t, "y", cfg.Analysis.Target)
	assert.Equal(t, []string{"a"}, cfg.Analysis.Factors)
}

func TestParseProfile_Invalid(t *testing.T) {
	_, err := ParseProfile([]byte(`target = [`))
	assert.Error(t, err)
}
