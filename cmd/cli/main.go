package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"anovadash/adapters/excel"
	"anovadash/app"
	"anovadash/domain/stats"
	"anovadash/internal"
	"anovadash/internal/config"
	"anovadash/internal/report"
	"anovadash/internal/testkit"
)

// Flags shared by every command that reads a dataset
var (
	dataFile     string
	profilePath  string
	outputFormat string
	alpha        float64
	workers      int
	verbose      bool
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "anova-cli",
		Short: "Per-variable ANOVA with assumption checks and post-hoc comparisons",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				internal.DefaultLogger.SetLevel(internal.LogLevelDebug)
			} else {
				internal.DefaultLogger.SetLevel(internal.LogLevelWarn)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&dataFile, "data", "d", "", "CSV or XLSX file (default: DATA_FILE, else synthetic housing data)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "TOML analysis profile (default: ANALYSIS_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", report.FormatHuman, "Output format: human|json|yaml|markdown")
	rootCmd.PersistentFlags().Float64Var(&alpha, "alpha", 0, "Significance level (default: ALPHA or 0.05)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Variables analyzed in parallel (default: ANALYSIS_WORKERS or CPU count)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newMultiFactorCmd(),
		newDescribeCmd(),
		newGroupsCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig layers command-line flags over the environment and profile
func loadConfig() (*config.Config, error) {
	if dataFile != "" {
		os.Setenv("DATA_FILE", dataFile)
	}
	if profilePath != "" {
		os.Setenv("ANALYSIS_PROFILE", profilePath)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if alpha > 0 {
		cfg.Analysis.Alpha = alpha
	}
	if workers > 0 {
		cfg.Analysis.Workers = workers
	}
	return cfg, nil
}

func newService() (*app.AnalysisService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewAnalysisServiceFromConfig(cfg)
}

// withSpinner shows progress on stderr only for human output
func withSpinner(suffix string, fn func() error) error {
	if outputFormat != report.FormatHuman {
		return fn()
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	s.Stop()
	return err
}

func newAnalyzeCmd() *cobra.Command {
	var target string
	var factors []string
	var posthoc string
	var multiFactor bool
	var interactions bool
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze each grouping variable against the target",
		Long: `Run a one-way ANOVA for every grouping variable, check its residuals for
normality (Shapiro-Wilk) and constant variance (Breusch-Pagan), fall back to
Kruskal-Wallis when either is rejected, and compare all pairs of groups with
Tukey HSD or Games-Howell.

Example:
  anova-cli analyze --data AmesHousing.csv --factor Neighborhood --factor House_Style -o markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			req := svc.DefaultRequest()
			if target != "" {
				req.Target = target
			}
			if len(factors) > 0 {
				req.Factors = factors
			}
			if cmd.Flags().Changed("multi-factor") {
				req.MultiFactor = multiFactor
			}
			if cmd.Flags().Changed("interactions") {
				req.Interactions = interactions
			}
			if posthoc != "" {
				procedure, err := stats.ParsePosthocProcedure(posthoc)
				if err != nil {
					return err
				}
				req.Posthoc = procedure
			}

			var result *stats.Report
			err = withSpinner(fmt.Sprintf("Analyzing %d variables from %s...", len(req.Factors), svc.SourceName()), func() error {
				result, err = svc.Analyze(cmd.Context(), req)
				return err
			})
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := excel.WriteReport(xlsxPath, result); err != nil {
					return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
				}
				printSuccess(fmt.Sprintf("Report written to %s", xlsxPath))
			}
			return report.Display(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Numeric target column (default: TARGET_COLUMN)")
	cmd.Flags().StringSliceVarP(&factors, "factor", "f", nil, "Grouping column, repeatable or comma separated (default: FACTOR_COLUMNS)")
	cmd.Flags().StringVar(&posthoc, "posthoc", "", "Post-hoc procedure: auto|tukey|games-howell")
	cmd.Flags().BoolVar(&multiFactor, "multi-factor", true, "Also fit one additive model over all factors")
	cmd.Flags().BoolVar(&interactions, "interactions", false, "Add two-way interaction terms to the multi-factor model")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the report to an Excel workbook")

	return cmd
}

func newMultiFactorCmd() *cobra.Command {
	var target string
	var interactions bool

	cmd := &cobra.Command{
		Use:   "multifactor [factors...]",
		Short: "Fit a type-II multi-factor ANOVA",
		Long: `Fit one least-squares model with every listed factor and report the
type-II sums of squares of each term.

Example:
  anova-cli multifactor Neighborhood House_Style --interactions`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			var result *stats.MultiFactorResult
			err = withSpinner("Fitting model...", func() error {
				result, err = svc.MultiFactor(cmd.Context(), target, args, interactions)
				return err
			})
			if err != nil {
				return err
			}
			return report.Display(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Numeric target column (default: TARGET_COLUMN)")
	cmd.Flags().BoolVar(&interactions, "interactions", false, "Add two-way interaction terms")

	return cmd
}

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "List columns and summarize the numeric ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			columns, err := svc.Columns(cmd.Context())
			if err != nil {
				return err
			}
			summaries, err := svc.Describe(cmd.Context())
			if err != nil {
				return err
			}

			if outputFormat != report.FormatHuman {
				return report.Display(cmd.OutOrStdout(), map[string]interface{}{
					"source":    svc.SourceName(),
					"columns":   columns,
					"summaries": summaries,
				}, outputFormat)
			}

			out := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan, color.Bold)
			cyan.Fprintf(out, "%s: %d columns\n", svc.SourceName(), len(columns))
			for _, c := range columns {
				fmt.Fprintf(out, "   %-24s %-12s %6d missing %6d distinct  %s\n", c.Name, c.Kind, c.Missing, c.Distinct, c.Description)
			}
			fmt.Fprintln(out)
			cyan.Fprintln(out, "Numeric columns")
			for _, s := range summaries {
				fmt.Fprintf(out, "   %-24s n=%-6d mean=%-14.4g sd=%-14.4g median=%-14.4g skew=%.3f\n",
					s.Column, s.Count, s.Mean, s.StdDev, s.Median, s.Skewness)
			}
			return nil
		},
	}
	return cmd
}

func newGroupsCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "groups [factor]",
		Short: "Show per-group summaries of the target for one factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			view, err := svc.Groups(cmd.Context(), target, args[0])
			if err != nil {
				return err
			}
			if outputFormat != report.FormatHuman {
				return report.Display(cmd.OutOrStdout(), view, outputFormat)
			}

			out := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprintf(out, "%s by %s\n", view.Target, view.Variable)
			fmt.Fprintf(out, "   %-16s %6s %14s %14s %14s %14s\n", "group", "n", "mean", "q1", "median", "q3")
			for _, b := range view.Boxes {
				fmt.Fprintf(out, "   %-16s %6d %14.2f %14.2f %14.2f %14.2f\n", b.Group, b.N, b.Mean, b.Q1, b.Median, b.Q3)
			}
			if view.QQ != nil {
				fmt.Fprintf(out, "\n   Q-Q of group means: r = %.3f\n", view.QQ.R)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Numeric target column (default: TARGET_COLUMN)")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var out string
	var rows int
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the synthetic housing dataset to CSV or XLSX",
		Long: `Write a seeded synthetic housing table with the column layout of the Ames
dataset. The file extension picks the format.

Example:
  anova-cli generate --out housing.xlsx --rows 2930 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			genConfig := testkit.DefaultHousingConfig()
			genConfig.Rows = rows
			genConfig.Seed = seed
			gen := testkit.NewHousingGenerator(genConfig)

			switch strings.ToLower(filepath.Ext(out)) {
			case ".xlsx":
				headers, data := gen.Generate()
				if err := excel.WriteRows(out, headers, data); err != nil {
					return err
				}
			case ".csv":
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := gen.WriteCSV(f); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported output extension %q (use .csv or .xlsx)", filepath.Ext(out))
			}

			printSuccess(fmt.Sprintf("Wrote %d rows to %s", rows, out))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "housing.csv", "Output file (.csv or .xlsx)")
	cmd.Flags().IntVar(&rows, "rows", 2930, "Number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic output")

	return cmd
}

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "✓ %s\n", msg)
}
