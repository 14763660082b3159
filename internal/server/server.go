package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/geo-analyzer/internal/analyzeclient"
	"github.com/joeblew999/geo-analyzer/internal/api"
	"github.com/joeblew999/geo-analyzer/internal/api/viewer"
	"github.com/joeblew999/geo-analyzer/internal/db"
	"github.com/joeblew999/geo-analyzer/internal/history"
	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/monitoring"
	"github.com/joeblew999/geo-analyzer/internal/session"
	"github.com/joeblew999/geo-analyzer/internal/templates"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

// maxUploadBytes bounds the multipart form kept in memory.
const maxUploadBytes = 50 << 20

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string // empty keeps history in memory
	ServiceURL string // base URL of the analysis service
	Endpoint   string // analyzeclient.AnalyzePath or analyzeclient.UploadPath
	Timeout    time.Duration
	Width      int
	Height     int

	// Client overrides the HTTP client built from ServiceURL.
	Client *analyzeclient.Client
}

// Server is the analyzer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	history  *history.Store
	renderer *mapview.Renderer
	session  *session.Session
	views    *templates.Renderer
}

// New creates a new analyzer server.
func New(cfg Config) (*Server, error) {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("geo-analyzer API", "1.0.0")
	humaConfig.Info.Description = "Client for a geometry anomaly-analysis service: upload, report, map state and history."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	views, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	client := cfg.Client
	if client == nil {
		client = analyzeclient.New(cfg.ServiceURL, cfg.Endpoint, &http.Client{})
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		renderer: mapview.NewRenderer(mapview.Options{Width: cfg.Width, Height: cfg.Height}),
		views:    views,
	}

	// History is optional: the analyzer still works without DuckDB.
	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "geo-analyzer"})
	if err == nil {
		store, serr := history.New(context.Background(), conn)
		if serr == nil {
			s.db, s.history = conn, store
		} else {
			monitoring.Logf("server: history disabled: %v", serr)
			conn.Close()
		}
	} else {
		monitoring.Logf("server: history disabled: %v", err)
	}

	sessCfg := session.Config{
		Submitter:  client,
		Reanalyzer: client,
		Renderer:   s.renderer,
		Timeout:    cfg.Timeout,
	}
	if s.history != nil {
		sessCfg.History = s.history
	}
	s.session, err = session.New(sessCfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// API returns the Huma API, used for OpenAPI export.
func (s *Server) API() huma.API { return s.humaAPI }

// Session returns the analyzer session behind the HTTP surface.
func (s *Server) Session() *session.Session { return s.session }

// Close releases the map and the history database.
func (s *Server) Close() error {
	s.renderer.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	svc := &api.Services{Session: s.session}
	if s.history != nil {
		svc.History = s.history
	}
	api.RegisterRoutes(s.humaAPI, svc)
	api.NewInfoHandler(s.config.ServiceURL, s.history != nil).RegisterRoutes(s.humaAPI)
	viewer.NewHandler(s.session, s.views).RegisterRoutes(s.humaAPI)

	// Multipart uploads stay on the plain mux.
	s.mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "geo-analyzer",
		"status":  "running",
	})
}

// handleAnalyze accepts a geometry file as multipart field "file" and runs
// it through the session. Analysis failures are part of the returned state.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	st, err := s.session.Analyze(r.Context(), upload.File{Name: header.Filename, Content: content})
	switch {
	case errors.Is(err, upload.ErrUnsupportedFile):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, upload.ErrBusy):
		writeError(w, http.StatusConflict, "An analysis is already in progress")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("server: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
