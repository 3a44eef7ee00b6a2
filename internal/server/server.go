// Package server exposes the waterfall and hybrid pipelines as a JSON HTTP
// API. Configurations arrive as YAML uploads or JSON bodies; responses carry
// fully-populated breakpoints, validation reports, and hybrid aggregates.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Eran5102/Valuation-sub004/internal/config"
	"github.com/Eran5102/Valuation-sub004/internal/hybrid"
	"github.com/Eran5102/Valuation-sub004/internal/waterfall"
	"github.com/Eran5102/Valuation-sub004/pkg/adapters"
	"github.com/Eran5102/Valuation-sub004/pkg/breakpoints"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/output"
	"github.com/Eran5102/Valuation-sub004/pkg/validation"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the analysis API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Waterfall API endpoint (file upload)
	mux.HandleFunc("/api/waterfall", h.handleWaterfall)

	// Waterfall API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/waterfall", h.handleWaterfallEditor)

	// Hybrid probability-weighted valuation endpoint
	mux.HandleFunc("/api/hybrid", h.handleHybrid)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type waterfallResponse struct {
	RunID       string                   `json:"runId"`
	Valid       bool                     `json:"valid"`
	Breakpoints []breakpoints.Breakpoint `json:"breakpoints,omitempty"`
	Structural  []validation.CheckResult `json:"structural"`
	Consistency []validation.CheckResult `json:"consistency,omitempty"`
	CSV         string                   `json:"csv,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Duration    string                   `json:"duration"`
}

type hybridResponse struct {
	RunID                  string           `json:"runId"`
	Success                bool             `json:"success"`
	WeightedMean           string           `json:"weightedMean"`
	StdDev                 string           `json:"stdDev"`
	CoefficientOfVariation string           `json:"coefficientOfVariation"`
	Percentile25           string           `json:"percentile25"`
	Percentile50           string           `json:"percentile50"`
	Percentile75           string           `json:"percentile75"`
	Outcomes               []hybrid.Outcome `json:"outcomes"`
	CSV                    string           `json:"csv,omitempty"`
	Warnings               []string         `json:"warnings,omitempty"`
	Errors                 []string         `json:"errors,omitempty"`
	Duration               string           `json:"duration"`
}

func (h *handler) handleWaterfall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	configBytes, ok := h.readUpload(w, r, "server.handleWaterfall")
	if !ok {
		return
	}
	h.runWaterfall(w, configBytes, start, "server.handleWaterfall")
}

func (h *handler) handleWaterfallEditor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	configBytes, ok := h.readJSONConfig(w, r, "server.handleWaterfallEditor")
	if !ok {
		return
	}
	h.runWaterfall(w, configBytes, start, "server.handleWaterfallEditor")
}

func (h *handler) handleHybrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	configBytes, ok := h.readJSONConfig(w, r, "server.handleHybrid")
	if !ok {
		return
	}

	cfg, warnings, snapshot, ok := h.loadConfig(w, configBytes, "server.handleHybrid")
	if !ok {
		return
	}
	if cfg.Hybrid == nil || len(cfg.Hybrid.Scenarios) == 0 {
		h.respondError(w, http.StatusBadRequest, "configuration has no hybrid scenarios", "server.handleHybrid")
		return
	}

	orchestrator := hybrid.NewOrchestrator(h.logger, mathutil.NewContext())
	result, err := orchestrator.Run(r.Context(), hybrid.Request{
		Snapshot:       snapshot,
		Scenarios:      adapters.ScenariosFromConfig(cfg.Hybrid),
		ValuationDate:  cfg.Hybrid.ValuationDate,
		DiscountRate:   decimal.NewFromFloat(cfg.Hybrid.DiscountRate),
		SolverStrategy: cfg.Solver.Strategy,
	})
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "server.handleHybrid")
		return
	}

	elapsed := time.Since(start)
	response := hybridResponse{
		RunID:                  result.RunID.String(),
		Success:                result.Success,
		WeightedMean:           result.WeightedMean.String(),
		StdDev:                 result.StdDev.String(),
		CoefficientOfVariation: result.CoefficientOfVariation.String(),
		Percentile25:           result.Percentile25.String(),
		Percentile50:           result.Percentile50.String(),
		Percentile75:           result.Percentile75.String(),
		Outcomes:               result.Outcomes,
		CSV:                    output.CsvStringHybrid(result),
		Warnings:               append(warnings, result.Warnings...),
		Errors:                 result.Errors,
		Duration:               elapsed.String(),
	}

	h.logger.Info("hybrid valuation served",
		zap.String("op", "server.handleHybrid"),
		zap.Int("scenarios", len(result.Outcomes)),
		zap.Bool("success", result.Success),
		zap.Duration("duration", elapsed),
	)
	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) runWaterfall(w http.ResponseWriter, configBytes []byte, start time.Time, op string) {
	_, warnings, snapshot, ok := h.loadConfig(w, configBytes, op)
	if !ok {
		return
	}

	engine := waterfall.NewEngine(h.logger, mathutil.NewContext(), "")
	analysis, err := engine.Run(snapshot)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute waterfall: %v", err), op)
		return
	}

	elapsed := time.Since(start)
	response := waterfallResponse{
		RunID:       analysis.RunID.String(),
		Valid:       analysis.Structural.Valid() && analysis.Valid,
		Structural:  analysis.Structural.Checks,
		Consistency: analysis.Consistency.Checks,
		Warnings:    append(warnings, analysis.Structural.Warnings()...),
		Duration:    elapsed.String(),
	}
	if analysis.Structural.Valid() {
		response.Breakpoints = analysis.Breakpoints
		response.CSV = output.CsvString(analysis)
	}

	h.logger.Info("waterfall computed",
		zap.String("op", op),
		zap.Int("breakpoints", len(response.Breakpoints)),
		zap.Bool("valid", response.Valid),
		zap.Duration("duration", elapsed),
	)
	h.writeJSON(w, http.StatusOK, response)
}

// loadConfig parses YAML bytes into configuration, collects config-level
// warnings, and builds the domain snapshot.
func (h *handler) loadConfig(w http.ResponseWriter, configBytes []byte, op string) (*config.Configuration, []string, *captable.Snapshot, bool) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return nil, nil, nil, false
	}

	warnings := cfg.Validate()
	snapshot, err := adapters.SnapshotFromConfig(cfg.CapTable)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid cap table: %v", err), op)
		return nil, nil, nil, false
	}
	return cfg, warnings, snapshot, true
}

func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing configuration file", op)
		return nil, false
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return nil, false
	}
	return buf.Bytes(), true
}

// readJSONConfig accepts either a raw config object or {"config": {...}} and
// re-encodes it as YAML for the shared loader.
func (h *handler) readJSONConfig(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return nil, false
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondError(w, http.StatusBadRequest, "invalid config payload: expected object", op)
			return nil, false
		}
		configPayload = cfgMap
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return nil, false
	}
	return configBytes, true
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("analysis request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func Run(ctx context.Context, logger *zap.Logger, cfg *Config, version string) error {
	handler := NewHandler(logger, cfg.UploadSizeBytes(), version)
	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "server.Run"),
			zap.String("address", cfg.Address),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
