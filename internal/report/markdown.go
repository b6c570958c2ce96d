package report

import (
	"fmt"
	"strings"

	"anovadash/domain/narrative"
	"anovadash/domain/stats"
)

// Markdown renders a full analysis report
func Markdown(r *stats.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# ANOVA report: %s\n\n", r.Target)
	fmt.Fprintf(&b, "Run `%s` at %s. %d rows analyzed, %d dropped for missing values.\n\n",
		r.RunID, r.CreatedAt, r.Rows, r.RowsDropped)

	for _, v := range r.Variables {
		b.WriteString(VariableMarkdown(v))
		b.WriteString("\n")
	}

	if len(r.Skipped) > 0 {
		b.WriteString("## Skipped variables\n\n")
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", s.Variable, s.Code, s.Reason)
		}
		b.WriteString("\n")
	}

	if r.MultiFactor != nil {
		b.WriteString(MultiFactorMarkdown(*r.MultiFactor))
		b.WriteString("\n")
	} else if r.MultiFactorError != "" {
		fmt.Fprintf(&b, "## Multi-factor ANOVA\n\nThe model could not be fitted: %s\n\n", r.MultiFactorError)
	}

	if len(r.Limitations) > 0 {
		b.WriteString("## Limitations\n\n")
		for _, l := range r.Limitations {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}
	return b.String()
}

// VariableMarkdown renders the section of one grouping variable
func VariableMarkdown(v stats.VariableAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s by %s\n\n", v.Target, v.Variable)
	fmt.Fprintf(&b, "%d groups, %d observations. ANOVA F = %.4f, p = %.4g.\n\n", v.Groups, v.N, v.ANOVA.F, v.ANOVA.PValue)
	for _, line := range v.Narrative {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n")

	if len(v.Posthoc.Comparisons) > 0 {
		fmt.Fprintf(&b, "### %s\n\n", narrative.ProcedureName(v.Posthoc.Procedure))
		b.WriteString("| Group A | Group B | Mean diff | SE | q | df | p adj | Reject |\n")
		b.WriteString("|---|---|---:|---:|---:|---:|---:|:---:|\n")
		for _, c := range v.Posthoc.Comparisons {
			reject := ""
			if c.Significant() {
				reject = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %.2f | %.2f | %.3f | %.1f | %.4f | %s |\n",
				c.GroupA, c.GroupB, c.MeanDifference, c.StdError, c.Q, c.DF, c.AdjustedP, reject)
		}
		b.WriteString("\n")
	}
	for _, note := range v.Posthoc.Notes {
		fmt.Fprintf(&b, "> %s\n", note)
	}
	return b.String()
}

// MultiFactorMarkdown renders the type-II ANOVA table
func MultiFactorMarkdown(mf stats.MultiFactorResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Multi-factor ANOVA\n\n`%s` on %d observations.\n\n", mf.Formula, mf.N)
	b.WriteString("| Term | Sum sq | df | F | p | |\n|---|---:|---:|---:|---:|---|\n")
	for _, e := range mf.Effects {
		fmt.Fprintf(&b, "| %s | %.4g | %d | %.3f | %.4g | %s |\n", e.Term, e.SumSq, e.DF, e.F, e.PValue, e.Interpretation)
	}
	fmt.Fprintf(&b, "| Residual | %.4g | %d | | | |\n\n", mf.ResidualSumSq, mf.ResidualDF)
	for _, line := range mf.Narrative {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	for _, l := range mf.Limitations {
		fmt.Fprintf(&b, "\n> %s\n", l)
	}
	return b.String()
}
