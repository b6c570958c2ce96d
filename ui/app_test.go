package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anovadash/adapters/stats/engine"
	"anovadash/app"
	"anovadash/domain/stats"
	"anovadash/internal/config"
	"anovadash/internal/profiling"
	"anovadash/internal/testkit"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	svc := app.NewAnalysisService(
		app.NewSyntheticSource(testkit.DefaultHousingConfig()),
		engine.NewEngine(engine.DefaultPolicy(), engine.WithWorkers(2)),
		config.AnalysisConfig{
			Target:       "SalePrice",
			Factors:      []string{"House_Style", "Bsmt_Full_Bath"},
			MultiFactor:  true,
			Descriptions: map[string]string{"SalePrice": "Sale price in USD"},
		},
	)
	a, err := NewApp(Config{Port: "0"}, svc)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, a *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndex_ListsColumns(t *testing.T) {
	rec := get(t, newTestApp(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Sale price in USD")
	assert.Contains(t, body, "Bsmt_Full_Bath")
	assert.Contains(t, body, `href="/groups/Neighborhood"`)
}

func TestAnalyze_RendersNarrative(t *testing.T) {
	rec := get(t, newTestApp(t), "/analyze?factor=House_Style&factor=Bsmt_Full_Bath&multi=1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<strong>")
	assert.Contains(t, body, "Multi-factor ANOVA")
	assert.Contains(t, body, "C(House_Style)")
	assert.Contains(t, body, "no multiple-comparison correction")
}

func TestAnalyze_UnknownColumnIsNotFound(t *testing.T) {
	rec := get(t, newTestApp(t), "/analyze?factor=Garage_Type")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestAnalyze_BadPosthoc(t *testing.T) {
	rec := get(t, newTestApp(t), "/analyze?posthoc=scheffe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// headerCounter records every WriteHeader call
type headerCounter struct {
	*httptest.ResponseRecorder
	statuses []int
}

func (h *headerCounter) WriteHeader(status int) {
	h.statuses = append(h.statuses, status)
	h.ResponseRecorder.WriteHeader(status)
}

func TestRenderError_WritesStatusOnce(t *testing.T) {
	a := newTestApp(t)

	w := &headerCounter{ResponseRecorder: httptest.NewRecorder()}
	a.renderError(w, &stats.InsufficientGroupSizeError{Variable: "Neighborhood", Group: "Landmrk", Size: 1, Required: 2})
	assert.Equal(t, []int{http.StatusUnprocessableEntity}, w.statuses)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_GROUP_SIZE")

	w = &headerCounter{ResponseRecorder: httptest.NewRecorder()}
	a.renderPage(w, http.StatusNotFound, "missing.html", nil)
	assert.Equal(t, []int{http.StatusInternalServerError}, w.statuses)
	assert.Equal(t, "Template error\n", w.Body.String())
}

func TestGroups_RendersPlots(t *testing.T) {
	rec := get(t, newTestApp(t), "/groups/House_Style")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, 8, strings.Count(body, "<rect "))
	assert.Contains(t, body, "Q-Q plot of group means")
}

func TestReportMarkdown(t *testing.T) {
	rec := get(t, newTestApp(t), "/report.md?factor=House_Style")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# ANOVA report: SalePrice"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".md")
}

func TestRequestFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/analyze?target=y&factor=a,b&factor=c&multi=on&posthoc=games-howell", nil)
	req, err := requestFromQuery(r)
	require.NoError(t, err)
	assert.Equal(t, "y", req.Target)
	assert.Equal(t, []string{"a", "b", "c"}, req.Factors)
	assert.True(t, req.MultiFactor)
	assert.Equal(t, stats.PosthocGamesHowell, req.Posthoc)
}

func TestLayoutBoxes(t *testing.T) {
	glyphs := layoutBoxes([]profiling.BoxSummary{
		{Group: "a", Min: 0, Q1: 1, Median: 2, Q3: 3, Max: 4},
		{Group: "b", Min: 2, Q1: 3, Median: 4, Q3: 5, Max: 8},
	})
	require.Len(t, glyphs, 2)
	assert.Equal(t, plotHeight-plotMargin, glyphs[0].YMin)
	assert.Equal(t, plotMargin, glyphs[1].YMax)
	assert.Greater(t, glyphs[0].BoxHeight, 0.0)
	assert.Less(t, glyphs[0].X, glyphs[1].X)
}
