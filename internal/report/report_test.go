package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"anovadash/domain/stats"
)

func sampleReport() *stats.Report {
	return &stats.Report{
		RunID:  "run-1",
		Target: "SalePrice",
		Rows:   100,
		Variables: []stats.VariableAnalysis{{
			Variable:  "Neighborhood",
			Target:    "SalePrice",
			Groups:    2,
			N:         100,
			Narrative: []string{"**Conclusion**: there is a **statistically significant difference** between the group means."},
			Posthoc: stats.PosthocResult{
				Procedure:   stats.PosthocGamesHowell,
				Comparisons: []stats.PosthocComparison{{GroupA: "NAmes", GroupB: "NoRidge", MeanDifference: 150000, AdjustedP: 0.001}},
				Notes:       []string{"omitted 1 pair"},
			},
		}},
		Skipped:          []stats.SkippedVariable{{Variable: "MS_SubClass", Code: "INSUFFICIENT_GROUP_SIZE", Reason: "group \"150\" has 1 observation(s)"}},
		MultiFactorError: "rank deficient",
		Limitations:      []string{"no correction across variables"},
	}
}

func TestMarkdown_Sections(t *testing.T) {
	md := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, "# ANOVA report: SalePrice"))
	assert.Contains(t, md, "## SalePrice by Neighborhood")
	assert.Contains(t, md, "### Games-Howell")
	assert.Contains(t, md, "| NAmes | NoRidge | 150000.00 |")
	assert.Contains(t, md, "| yes |")
	assert.Contains(t, md, "## Skipped variables")
	assert.Contains(t, md, "could not be fitted: rank deficient")
	assert.Contains(t, md, "## Limitations")
}

func TestMultiFactorMarkdown(t *testing.T) {
	md := MultiFactorMarkdown(stats.MultiFactorResult{
		Formula:    "SalePrice ~ C(A) + C(B)",
		N:          12,
		Effects:    []stats.FactorEffect{{Term: "C(A)", SumSq: 300, DF: 1, F: 337.5, PValue: 1e-8, Interpretation: "very significant"}},
		ResidualDF: 9,
	})
	assert.Contains(t, md, "| C(A) | 300 | 1 | 337.500 |")
	assert.Contains(t, md, "| Residual |")
}

func TestToHTML(t *testing.T) {
	out := string(ToHTML(Markdown(sampleReport())))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<strong>statistically significant difference</strong>")

	lines := LinesToHTML([]string{"**bold**"})
	assert.Contains(t, string(lines[0]), "<strong>bold</strong>")
}

func TestLinesToHTML_DropsRawHTML(t *testing.T) {
	lines := LinesToHTML([]string{
		"<img src=x onerror=alert(1)>",
		"Tukey HSD: 1 of 3 pairs differ significantly. Largest differences: <script>alert(1)</script> vs NAmes (+2.00, p = 0.0100).",
		"**Conclusion**: see [details](javascript:alert(1)).",
	})
	require.Len(t, lines, 3)
	for _, line := range lines {
		out := string(line)
		assert.NotContains(t, out, "<img")
		assert.NotContains(t, out, "<script")
		assert.NotContains(t, out, `href="javascript:`)
	}
	assert.Contains(t, string(lines[1]), "vs NAmes")
	assert.Contains(t, string(lines[2]), "<strong>Conclusion</strong>")
}

func TestDisplay_Human(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, Display(&buf, sampleReport(), FormatHuman))

	out := buf.String()
	assert.Contains(t, out, "ANOVA REPORT: SalePrice")
	assert.Contains(t, out, "SalePrice by Neighborhood")
	assert.Contains(t, out, "Games-Howell: 1 of 1 pairs differ")
	assert.Contains(t, out, "there is a statistically significant difference")
	assert.NotContains(t, out, "**")
	assert.Contains(t, out, "MS_SubClass [INSUFFICIENT_GROUP_SIZE]")
	assert.Contains(t, out, "MULTI-FACTOR MODEL NOT FITTED: rank deficient")
}

func TestDisplay_MachineFormats(t *testing.T) {
	r := sampleReport()

	var js bytes.Buffer
	require.NoError(t, Display(&js, r, FormatJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "SalePrice", decoded["target"])

	var ym bytes.Buffer
	require.NoError(t, Display(&ym, r, FormatYAML))
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, "SalePrice", fromYAML["target"])

	var md bytes.Buffer
	require.NoError(t, Display(&md, r, FormatMarkdown))
	assert.Equal(t, Markdown(r), md.String())

	assert.Error(t, Display(&md, r, "xml"))
}
