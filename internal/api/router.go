package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"anovadash/app"
	"anovadash/internal"
)

// NewRouter builds the gin engine serving /api/v1
func NewRouter(service *app.AnalysisService, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(internal.DefaultLogger.With("API")))

	handler := NewAnalysisHandler(service)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "source": service.SourceName()})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/columns", handler.GetColumns)
		v1.GET("/describe", handler.GetDescribe)
		v1.GET("/defaults", handler.GetDefaults)
		v1.GET("/groups/:factor", handler.GetGroups)
		v1.POST("/analyze", handler.PostAnalyze)
		v1.POST("/multifactor", handler.PostMultiFactor)
	}

	return router
}

// requestLogger tags each request with an ID and logs it on completion
func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		logger.Info("%s %s %d %v [%s]", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), requestID)
	}
}

// Serve runs the router on port until ctx is cancelled
func Serve(ctx context.Context, router http.Handler, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		internal.DefaultLogger.With("API").Info("listening on http://localhost:%s/api/v1", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
