package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anovadash/adapters/stats/engine"
	"anovadash/app"
	"anovadash/domain/stats"
	apperrors "anovadash/internal/errors"
)

// AnalyzeRequest is the JSON body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Target       string   `json:"target"`
	Factors      []string `json:"factors"`
	MultiFactor  *bool    `json:"multi_factor"`
	Interactions bool     `json:"interactions"`
	Posthoc      string   `json:"posthoc"`
}

// MultiFactorRequest is the JSON body of POST /api/v1/multifactor
type MultiFactorRequest struct {
	Target       string   `json:"target"`
	Factors      []string `json:"factors" binding:"required,min=1"`
	Interactions bool     `json:"interactions"`
}

// AnalysisHandler serves the analysis service over JSON
type AnalysisHandler struct {
	service *app.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *app.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// GetColumns lists the dataset columns with their descriptions
func (h *AnalysisHandler) GetColumns(c *gin.Context) {
	columns, err := h.service.Columns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":  h.service.SourceName(),
		"columns": columns,
	})
}

// GetDescribe returns summary statistics for every numeric column
func (h *AnalysisHandler) GetDescribe(c *gin.Context) {
	summaries, err := h.service.Describe(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

// PostAnalyze runs the per-variable analysis. An empty body uses the
// configured defaults.
func (h *AnalysisHandler) PostAnalyze(c *gin.Context) {
	var body AnalyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	req := h.service.DefaultRequest()
	if body.Target != "" {
		req.Target = body.Target
	}
	if len(body.Factors) > 0 {
		req.Factors = body.Factors
	}
	if body.MultiFactor != nil {
		req.MultiFactor = *body.MultiFactor
	}
	req.Interactions = body.Interactions
	if body.Posthoc != "" {
		posthoc, err := stats.ParsePosthocProcedure(body.Posthoc)
		if err != nil {
			respondError(c, err)
			return
		}
		req.Posthoc = posthoc
	}

	report, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// PostMultiFactor fits only the multi-factor model
func (h *AnalysisHandler) PostMultiFactor(c *gin.Context) {
	var body MultiFactorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.service.MultiFactor(c.Request.Context(), body.Target, body.Factors, body.Interactions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetGroups returns box summaries and the group-means Q-Q plot for a factor
func (h *AnalysisHandler) GetGroups(c *gin.Context) {
	view, err := h.service.Groups(c.Request.Context(), c.Query("target"), c.Param("factor"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetDefaults echoes the request the dashboard runs on first load
func (h *AnalysisHandler) GetDefaults(c *gin.Context) {
	req := h.service.DefaultRequest()
	c.JSON(http.StatusOK, gin.H{
		"target":       req.Target,
		"factors":      req.Factors,
		"multi_factor": req.MultiFactor,
		"interactions": req.Interactions,
		"posthoc":      procedureOrAuto(req),
	})
}

func procedureOrAuto(req engine.Request) stats.PosthocProcedure {
	if req.Posthoc == "" {
		return stats.PosthocAuto
	}
	return req.Posthoc
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}
