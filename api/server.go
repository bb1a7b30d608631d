// Package api provides HTTP API capabilities for the cashalert extractor.
// This is a capability module that can be enabled via the CLI or used programmatically.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/aqlanhadi/cashalert/export"
	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/aqlanhadi/cashalert/extractor/cash_alert"
	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/logger"
	"github.com/aqlanhadi/cashalert/lookup"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 32 << 20

// Config holds the API server configuration
type Config struct {
	Port   string
	Parse  cash_alert.Config
	Export export.Config
}

// DefaultConfig returns the default API configuration
func DefaultConfig() Config {
	return Config{
		Port:   ":8080",
		Parse:  cash_alert.DefaultConfig(),
		Export: export.DefaultConfig(),
	}
}

// Server represents the HTTP API server
type Server struct {
	config Config
	cache  *lookup.Cache
	mux    *http.ServeMux
	log    zerolog.Logger
}

// New creates a new API server. cache may be nil, in which case lookup columns stay blank.
func New(cfg Config, cache *lookup.Cache) *Server {
	s := &Server{
		config: cfg,
		cache:  cache,
		mux:    http.NewServeMux(),
		log:    log.Logger.With().Str("component", "api").Logger(),
	}
	s.registerRoutes()
	return s
}

// registerRoutes sets up the API endpoints
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/extract", s.handleExtract)
	s.mux.HandleFunc("/export", s.handleExport)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// Handler returns the http.Handler for the server
// This allows the server to be used with custom http.Server configurations
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	s.log.Info().Str("port", s.config.Port).Msg("starting server")
	return http.ListenAndServe(s.config.Port, s.mux)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ExtractOptions holds the options for extraction
type ExtractOptions struct {
	Strategy           string
	RequireAccountCode bool
	ValueDate          string
	TextOnly           bool
}

// parseExtractOptions extracts options from the HTTP request
func (s *Server) parseExtractOptions(r *http.Request) ExtractOptions {
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(coalesce(r.FormValue(name), r.URL.Query().Get(name)))
		return v
	}
	return ExtractOptions{
		Strategy:           coalesce(r.FormValue("strategy"), r.URL.Query().Get("strategy")),
		RequireAccountCode: flag("require_account_code"),
		ValueDate:          coalesce(r.FormValue("value_date"), r.URL.Query().Get("value_date")),
		TextOnly:           flag("text_only"),
	}
}

// pipelineOptions overlays request options on the server configuration.
func (s *Server) pipelineOptions(opts ExtractOptions) (extractor.Options, error) {
	out := extractor.DefaultOptions()
	out.Parse = s.config.Parse

	if opts.Strategy != "" {
		strategy, err := cash_alert.ParseStrategy(opts.Strategy)
		if err != nil {
			return out, err
		}
		out.Parse.Strategy = strategy
	}
	if opts.RequireAccountCode {
		out.Parse.RequireAccountCode = true
	}
	if opts.ValueDate != "" {
		date, err := common.ParseValueDate(opts.ValueDate)
		if err != nil {
			return out, fmt.Errorf("invalid value_date %q", opts.ValueDate)
		}
		out.ValueDate = date
	}
	return out, nil
}

// readMessage accepts either a multipart upload in the "file" field or a raw body.
// A raw body is decoded by the extension of the "filename" query parameter.
func (s *Server) readMessage(r *http.Request) (common.Message, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return common.Message{}, "", fmt.Errorf("could not parse multipart form: %w", err)
		}
		file, handler, err := r.FormFile("file")
		if err != nil {
			return common.Message{}, "", fmt.Errorf("could not get uploaded file: %w", err)
		}
		defer file.Close()

		msg, err := common.ReadMessage(file, handler.Filename)
		return msg, handler.Filename, err
	}

	if r.Body == nil {
		return common.Message{}, "", common.ErrEmptyBody
	}
	name := coalesce(r.URL.Query().Get("filename"), "body.html")
	msg, err := common.ReadMessage(io.LimitReader(r.Body, maxUploadBytes), name)
	return msg, name, err
}

// outcome is a processed request: the result and the error ProcessBody returned with it.
type outcome struct {
	result extractor.Result
	err    error
}

// process runs the pipeline for one request. It writes the response itself and
// returns nil when the request is already answered.
func (s *Server) process(w http.ResponseWriter, r *http.Request) *outcome {
	reqLog := logger.WithFields(s.log, map[string]interface{}{
		"request_id": uuid.NewString(),
		"path":       r.URL.Path,
	})
	reqLog.Debug().Str("remote", r.RemoteAddr).Msg("received request")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil
	}

	msg, name, err := s.readMessage(r)
	if err != nil {
		reqLog.Warn().Err(err).Msg("could not read message")
		http.Error(w, "Could not read message: "+err.Error(), http.StatusBadRequest)
		return nil
	}

	opts := s.parseExtractOptions(r)
	pipeline, err := s.pipelineOptions(opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	if opts.TextOnly {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"filename": name,
			"text":     common.NormalizeBody(msg.Body),
		})
		return nil
	}

	ctx := logger.WithContext(r.Context(), reqLog)
	result, err := extractor.ProcessBody(ctx, msg, s.cache, pipeline)
	result.Source = name
	reqLog.Info().Int("deposits", len(result.Deposits)).Int("discarded", result.Discarded).Msg("processed")
	return &outcome{result: result, err: err}
}

// handleExtract returns the deposits of an alert as JSON
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	out := s.process(w, r)
	if out == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(extractor.CreateOutput(out.result, out.err))
}

// handleExport returns the booking rows of an alert as a single CSV document
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out := s.process(w, r)
	if out == nil {
		return
	}
	if errors.Is(out.err, extractor.ErrNoValidTransactions) {
		http.Error(w, "No valid transaction blocks found", http.StatusUnprocessableEntity)
		return
	}

	deposits := out.result.Deposits
	rows := make([][]string, 0, len(deposits))
	for _, d := range deposits {
		rows = append(rows, export.BuildRow(d, s.config.Export))
	}

	filename := strings.TrimSuffix(export.FileName(deposits[0], 0, 1), ".csv")
	if len(deposits) > 1 {
		filename += fmt.Sprintf("_x%d", len(deposits))
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
	if err := export.Write(w, rows); err != nil {
		s.log.Error().Err(err).Msg("failed to write CSV response")
	}
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
