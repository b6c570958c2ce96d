package excel

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"anovadash/domain/narrative"
	"anovadash/domain/stats"
)

// WriteRows saves a header and string rows to the first sheet of a workbook
func WriteRows(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if err := writeSheet(f, sheet, toRow(headers), func(emit func([]interface{}) error) error {
		for _, row := range rows {
			if err := emit(toRow(row)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// WriteReport saves an analysis report as a workbook with one sheet per table
func WriteReport(path string, report *stats.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	variables := []interface{}{"Variable", "Groups", "N", "ANOVA F", "ANOVA p", "Shapiro-Wilk p",
		"Breusch-Pagan p", "Decision", "Chosen test", "Chosen p", "Post-hoc"}
	if err := writeSheet(f, "Variables", variables, func(emit func([]interface{}) error) error {
		for _, v := range report.Variables {
			if err := emit([]interface{}{string(v.Variable), v.Groups, v.N, v.ANOVA.F, v.ANOVA.PValue,
				v.Diagnostics.NormalityP, v.Diagnostics.HomoscedasticityP, string(v.Decision),
				v.ChosenTest, v.ChosenP, narrative.ProcedureName(v.Posthoc.Procedure)}); err != nil {
				return err
			}
		}
		for _, s := range report.Skipped {
			if err := emit([]interface{}{string(s.Variable), "skipped", s.Code, s.Reason}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	posthoc := []interface{}{"Variable", "Group A", "Group B", "Mean difference", "Std error", "q", "df", "Adjusted p", "Significant"}
	if err := writeSheet(f, "Posthoc", posthoc, func(emit func([]interface{}) error) error {
		for _, v := range report.Variables {
			for _, c := range v.Posthoc.Comparisons {
				if err := emit([]interface{}{string(v.Variable), c.GroupA, c.GroupB, c.MeanDifference,
					c.StdError, c.Q, c.DF, c.AdjustedP, c.Significant()}); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if mf := report.MultiFactor; mf != nil {
		header := []interface{}{"Term", "Sum sq", "df", "F", "p", "Interpretation"}
		if err := writeSheet(f, "MultiFactor", header, func(emit func([]interface{}) error) error {
			for _, e := range mf.Effects {
				if err := emit([]interface{}{e.Term, e.SumSq, e.DF, e.F, e.PValue, e.Interpretation}); err != nil {
					return err
				}
			}
			return emit([]interface{}{"Residual", mf.ResidualSumSq, mf.ResidualDF})
		}); err != nil {
			return err
		}
	}

	// the default sheet is unused once the report sheets exist
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// writeSheet creates the sheet if needed and writes the header followed by
// whatever rows fill emits
func writeSheet(f *excelize.File, sheet string, header []interface{}, fill func(emit func([]interface{}) error) error) error {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	rowIdx := 1
	emit := func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		for i, v := range values {
			// excelize cannot store Inf or NaN as numbers
			if x, ok := v.(float64); ok && (math.IsInf(x, 0) || math.IsNaN(x)) {
				values[i] = fmt.Sprint(x)
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, rowIdx, err)
		}
		rowIdx++
		return nil
	}
	if err := emit(header); err != nil {
		return err
	}
	return fill(emit)
}

func toRow(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
