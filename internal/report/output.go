package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"anovadash/domain/narrative"
	"anovadash/domain/stats"
)

// Output formats accepted by Display
const (
	FormatHuman    = "human"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Display writes a value in the requested format. Human and markdown
// output are only defined for reports and multi-factor results.
func Display(w io.Writer, value interface{}, format string) error {
	switch format {
	case FormatJSON:
		return displayJSON(w, value)
	case FormatYAML:
		return displayYAML(w, value)
	case FormatMarkdown:
		switch v := value.(type) {
		case *stats.Report:
			_, err := io.WriteString(w, Markdown(v))
			return err
		case *stats.MultiFactorResult:
			_, err := io.WriteString(w, MultiFactorMarkdown(*v))
			return err
		}
		return displayJSON(w, value)
	case FormatHuman, "":
		switch v := value.(type) {
		case *stats.Report:
			displayHuman(w, v)
			return nil
		case *stats.MultiFactorResult:
			displayMultiFactor(w, *v)
			return nil
		}
		return displayYAML(w, value)
	}
	return fmt.Errorf("unknown output format %q (human, json, yaml, markdown)", format)
}

func displayJSON(w io.Writer, value interface{}) error {
	output, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, value interface{}) error {
	output, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

func displayHuman(w io.Writer, r *stats.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "ANOVA REPORT: %s\n", r.Target)
	fmt.Fprintf(w, "   run %s, %d rows (%d dropped)\n\n", r.RunID, r.Rows, r.RowsDropped)

	for _, v := range r.Variables {
		white.Fprintf(w, "%s by %s\n", v.Target, v.Variable)
		fmt.Fprintf(w, "   %d groups, n = %d, test: %s, p = %s\n",
			v.Groups, v.N, v.ChosenTest, pColor(v.ChosenP).Sprintf("%.4g", v.ChosenP))
		fmt.Fprintf(w, "   normality p = %.4g, homoscedasticity p = %.4g\n",
			v.Diagnostics.NormalityP, v.Diagnostics.HomoscedasticityP)
		for _, line := range v.Narrative {
			fmt.Fprintf(w, "   - %s\n", plain(line))
		}
		if n := len(v.Posthoc.Comparisons); n > 0 {
			significant := 0
			for _, c := range v.Posthoc.Comparisons {
				if c.Significant() {
					significant++
				}
			}
			fmt.Fprintf(w, "   %s: %d of %d pairs differ\n", narrative.ProcedureName(v.Posthoc.Procedure), significant, n)
		}
		for _, note := range v.Posthoc.Notes {
			fmt.Fprintf(w, "   %s\n", color.HiBlackString(note))
		}
		fmt.Fprintln(w)
	}

	if len(r.Skipped) > 0 {
		yellow.Fprintln(w, "SKIPPED:")
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "   %s [%s] %s\n", s.Variable, s.Code, s.Reason)
		}
		fmt.Fprintln(w)
	}

	if r.MultiFactor != nil {
		displayMultiFactor(w, *r.MultiFactor)
	} else if r.MultiFactorError != "" {
		yellow.Fprintf(w, "MULTI-FACTOR MODEL NOT FITTED: %s\n\n", r.MultiFactorError)
	}

	for _, l := range r.Limitations {
		fmt.Fprintf(w, "%s\n", color.HiBlackString("note: "+l))
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%s\n", color.HiBlackString("Run with -o json, -o yaml or -o markdown for machine-readable output"))
}

func displayMultiFactor(w io.Writer, mf stats.MultiFactorResult) {
	white := color.New(color.FgWhite, color.Bold)
	white.Fprintf(w, "MULTI-FACTOR ANOVA: %s (n = %d)\n", mf.Formula, mf.N)
	fmt.Fprintf(w, "   %-32s %14s %5s %10s %10s\n", "term", "sum sq", "df", "F", "p")
	for _, e := range mf.Effects {
		fmt.Fprintf(w, "   %-32s %14.4g %5d %10.3f %s\n",
			e.Term, e.SumSq, e.DF, e.F, pColor(e.PValue).Sprintf("%10.4g", e.PValue))
	}
	fmt.Fprintf(w, "   %-32s %14.4g %5d\n", "Residual", mf.ResidualSumSq, mf.ResidualDF)
	for _, line := range mf.Narrative {
		fmt.Fprintf(w, "   - %s\n", plain(line))
	}
	fmt.Fprintln(w)
}

func pColor(p float64) *color.Color {
	switch {
	case p < 0.01:
		return color.New(color.FgGreen, color.Bold)
	case p < 0.05:
		return color.New(color.FgGreen)
	case p < 0.1:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

// plain strips the markdown emphasis used by narrative lines
func plain(s string) string {
	return strings.NewReplacer("**", "", "`", "").Replace(s)
}
