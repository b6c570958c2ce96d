package ui

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"anovadash/adapters/stats/engine"
	"anovadash/app"
	"anovadash/domain/dataset"
	"anovadash/domain/narrative"
	"anovadash/domain/stats"
	apperrors "anovadash/internal/errors"
	"anovadash/internal/profiling"
	"anovadash/internal/report"
)

type indexPage struct {
	Source     string
	Columns    []profiling.ColumnDescription
	Describe   []profiling.ColumnSummary
	Defaults   engine.Request
	Numeric    []string
	Categories []string
}

type reportPage struct {
	Report *stats.Report
	Query  string
}

type groupsPage struct {
	View  *app.GroupView
	Boxes []boxGlyph
	QQ    []qqGlyph
	Line  qqLine
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	columns, err := a.service.Columns(ctx)
	if err != nil {
		a.renderError(w, err)
		return
	}
	describe, err := a.service.Describe(ctx)
	if err != nil {
		a.renderError(w, err)
		return
	}

	page := indexPage{
		Source:   a.service.SourceName(),
		Columns:  columns,
		Describe: describe,
		Defaults: a.service.DefaultRequest(),
	}
	for _, c := range columns {
		if c.Kind == dataset.KindNumeric {
			page.Numeric = append(page.Numeric, c.Name)
		}
		if c.Kind != dataset.KindEmpty {
			page.Categories = append(page.Categories, c.Name)
		}
	}
	a.renderTemplate(w, "index.html", page)
}

// requestFromQuery reads target, repeated factor, multi, interactions and posthoc
func requestFromQuery(r *http.Request) (engine.Request, error) {
	q := r.URL.Query()
	req := engine.Request{
		Target:       q.Get("target"),
		MultiFactor:  q.Get("multi") == "1" || q.Get("multi") == "on",
		Interactions: q.Get("interactions") == "1" || q.Get("interactions") == "on",
	}
	for _, f := range q["factor"] {
		for _, part := range strings.Split(f, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.Factors = append(req.Factors, part)
			}
		}
	}
	posthoc, err := stats.ParsePosthocProcedure(q.Get("posthoc"))
	if err != nil {
		return req, err
	}
	if posthoc != stats.PosthocAuto {
		req.Posthoc = posthoc
	}
	return req, nil
}

func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		a.renderError(w, err)
		return
	}
	rep, err := a.service.Analyze(r.Context(), req)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderTemplate(w, "report.html", reportPage{Report: rep, Query: r.URL.RawQuery})
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}
	rep, err := a.service.Analyze(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "anova-"+rep.RunID.String()+".md"))
	_, _ = w.Write([]byte(report.Markdown(rep)))
}

func (a *App) handleGroups(w http.ResponseWriter, r *http.Request) {
	factor := chi.URLParam(r, "factor")
	view, err := a.service.Groups(r.Context(), r.URL.Query().Get("target"), factor)
	if err != nil {
		a.renderError(w, err)
		return
	}
	page := groupsPage{View: view, Boxes: layoutBoxes(view.Boxes)}
	if view.QQ != nil {
		page.QQ, page.Line = layoutQQ(*view.QQ)
	}
	a.renderTemplate(w, "groups.html", page)
}

func (a *App) renderError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	a.logger.Warn("request failed (%d): %v", status, err)
	a.renderPage(w, status, "error.html", map[string]interface{}{
		"Status": status,
		"Code":   apperrors.GetCode(err),
		"Error":  err.Error(),
	})
}

func formatP(p float64) string {
	if p < 0.0001 {
		return "< 0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

func procedureLabel(p stats.PosthocProcedure) string {
	return narrative.ProcedureName(p)
}

// SVG geometry of the box plot and Q-Q chart
const (
	plotWidth  = 720.0
	plotHeight = 320.0
	plotMargin = 40.0
)

type boxGlyph struct {
	profiling.BoxSummary
	X, Width, Center, Right       float64
	YMin, YQ1, YMedian, YQ3, YMax float64
	BoxHeight                     float64
}

func layoutBoxes(boxes []profiling.BoxSummary) []boxGlyph {
	if len(boxes) == 0 {
		return nil
	}
	lo, hi := profiling.Range(boxes)
	scale := yScale(lo, hi)
	slot := (plotWidth - 2*plotMargin) / float64(len(boxes))

	out := make([]boxGlyph, len(boxes))
	for i, b := range boxes {
		x := plotMargin + float64(i)*slot + slot*0.2
		width := slot * 0.6
		out[i] = boxGlyph{
			BoxSummary: b,
			X:          x,
			Width:      width,
			Center:     x + width/2,
			Right:      x + width,
			YMin:       scale(b.Min),
			YQ1:        scale(b.Q1),
			YMedian:    scale(b.Median),
			YQ3:        scale(b.Q3),
			YMax:       scale(b.Max),
			BoxHeight:  scale(b.Q1) - scale(b.Q3),
		}
	}
	return out
}

type qqGlyph struct {
	profiling.QQPoint
	X, Y float64
}

type qqLine struct {
	X1, Y1, X2, Y2 float64
}

func layoutQQ(qq profiling.QQPlot) ([]qqGlyph, qqLine) {
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, p := range qq.Points {
		xlo, xhi = math.Min(xlo, p.Theoretical), math.Max(xhi, p.Theoretical)
		ylo, yhi = math.Min(ylo, p.Observed), math.Max(yhi, p.Observed)
	}
	xs := xScale(xlo, xhi)
	ys := yScale(ylo, yhi)

	points := make([]qqGlyph, len(qq.Points))
	for i, p := range qq.Points {
		points[i] = qqGlyph{QQPoint: p, X: xs(p.Theoretical), Y: ys(p.Observed)}
	}
	line := qqLine{
		X1: xs(xlo), Y1: ys(qq.Intercept + qq.Slope*xlo),
		X2: xs(xhi), Y2: ys(qq.Intercept + qq.Slope*xhi),
	}
	return points, line
}

func xScale(lo, hi float64) func(float64) float64 {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return func(v float64) float64 {
		return plotMargin + (v-lo)/span*(plotWidth-2*plotMargin)
	}
}

func yScale(lo, hi float64) func(float64) float64 {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return func(v float64) float64 {
		return plotHeight - plotMargin - (v-lo)/span*(plotHeight-2*plotMargin)
	}
}
