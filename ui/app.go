package ui

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"anovadash/app"
	"anovadash/internal"
	"anovadash/internal/report"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App represents the dashboard application
type App struct {
	router    *chi.Mux
	service   *app.AnalysisService
	templates *template.Template
	logger    *internal.Logger
	port      string
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates a new dashboard over the analysis service
func NewApp(config Config, service *app.AnalysisService) (*App, error) {
	funcMap := template.FuncMap{
		"markdown":  report.ToHTML,
		"lines":     report.LinesToHTML,
		"pvalue":    formatP,
		"num":       func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"add":       func(a, b int) int { return a + b },
		"procedure": procedureLabel,
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	port := config.Port
	if port == "" {
		port = "8080"
	}
	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		templates: templates,
		logger:    internal.DefaultLogger.With("UI"),
		port:      port,
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	a.router.Use(middleware.Timeout(2 * time.Minute))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/analyze", a.handleAnalyze)
	a.router.Get("/groups/{factor}", a.handleGroups)
	a.router.Get("/report.md", a.handleReportMarkdown)
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler exposes the router for tests and embedding
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled
func (a *App) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + a.port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("dashboard listening on http://localhost:%s", a.port)
		errCh <- server.ListenAndServe()
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

// renderTemplate writes a full page with status 200
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	a.renderPage(w, http.StatusOK, templateName, data)
}

// renderPage executes the template into a buffer so the status line is
// written exactly once, as status on success or 500 on a template error.
func (a *App) renderPage(w http.ResponseWriter, status int, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		a.logger.Error("template %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
