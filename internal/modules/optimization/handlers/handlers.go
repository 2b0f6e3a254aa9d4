// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/aristath/frontier/internal/utils"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
	contentTypeCSV     = "text/csv"
)

// Options configures the optimization handlers.
type Options struct {
	Defaults          optimization.Settings
	MaxBodyBytes      int64
	Timeout           time.Duration // per-analysis limit; 0 relies on the request context
	MaxSamples        int           // 0 means optimization.DefaultMaxSamples
	MaxFrontierPoints int           // 0 means optimization.DefaultMaxFrontierPoints
}

func (o Options) sampleLimit() int {
	if o.MaxSamples > 0 {
		return o.MaxSamples
	}
	return optimization.DefaultMaxSamples
}

func (o Options) frontierPointLimit() int {
	if o.MaxFrontierPoints > 0 {
		return o.MaxFrontierPoints
	}
	return optimization.DefaultMaxFrontierPoints
}

// Handler handles portfolio optimization HTTP requests
type Handler struct {
	service *optimization.OptimizerService
	opts    Options
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service *optimization.OptimizerService, opts Options, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		opts:    opts,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// HandleAnalyze handles POST /api/frontier/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	settings, err := settingsFromQuery(r.URL.Query(), h.opts)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	series, report, err := h.readSeries(w, r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	analysis, err := h.service.Analyze(ctx, series, settings)
	if err != nil {
		h.log.Warn().Err(err).Int("num_assets", len(series)).Msg("Analysis failed")
		h.writeError(w, r, statusFor(err), err)
		return
	}

	h.write(w, r, http.StatusOK, map[string]interface{}{
		"data": analysis,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"input":     report,
		},
	})
}

// HandleDescribe handles POST /api/frontier/describe
func (h *Handler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	settings, err := settingsFromQuery(r.URL.Query(), h.opts)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	series, report, err := h.readSeries(w, r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	stats, err := h.service.Describe(series, settings)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	h.write(w, r, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"input":     report,
		},
	})
}

// HandleGetDefaults handles GET /api/frontier/defaults
func (h *Handler) HandleGetDefaults(w http.ResponseWriter, r *http.Request) {
	d := h.opts.Defaults
	h.write(w, r, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"risk_free_rate":        d.RiskFreeRate,
			"samples":               d.Samples,
			"seed":                  d.Seed,
			"frontier_points":       d.FrontierPoints,
			"estimator":             d.Estimator,
			"linkage":               d.Linkage,
			"rolling_window":        d.RollingWindow,
			"correlation_threshold": d.CorrelationThreshold,
			"max_body_bytes":        h.opts.MaxBodyBytes,
			"max_samples":           h.opts.sampleLimit(),
			"max_frontier_points":   h.opts.frontierPointLimit(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// readSeries decodes the request body as a CSV table or a JSON payload,
// depending on its Content-Type.
func (h *Handler) readSeries(w http.ResponseWriter, r *http.Request) ([]domain.PriceSeries, prices.LoadReport, error) {
	if h.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	}
	columns := utils.ParseList(r.URL.Query().Get("columns"))

	mediaType := contentTypeJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, prices.LoadReport{}, fmt.Errorf("invalid content type: %w", err)
		}
		mediaType = mt
	}

	switch mediaType {
	case contentTypeCSV, "text/plain", "application/csv":
		src := prices.NewCSVSource(h.log)
		src.Columns = columns
		src.DateColumn = r.URL.Query().Get("date_column")
		return src.Load(r.Body)
	case contentTypeJSON:
		payload, err := prices.DecodePayload(r.Body)
		if err != nil {
			return nil, prices.LoadReport{}, err
		}
		return payload.Series(columns)
	default:
		return nil, prices.LoadReport{}, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// settingsFromQuery applies query parameter overrides to the defaults and
// enforces the per-request work limits.
func settingsFromQuery(q url.Values, opts Options) (optimization.Settings, error) {
	s := opts.Defaults
	var err error

	floatParam := func(name string, dst *float64) {
		if v := q.Get(name); v != "" && err == nil {
			if *dst, err = strconv.ParseFloat(v, 64); err != nil {
				err = fmt.Errorf("invalid %s: %q", name, v)
			}
		}
	}
	intParam := func(name string, dst *int) {
		if v := q.Get(name); v != "" && err == nil {
			if *dst, err = strconv.Atoi(v); err != nil || *dst < 0 {
				err = fmt.Errorf("invalid %s: %q", name, v)
			}
		}
	}
	boolParam := func(name string, dst *bool) {
		if v := q.Get(name); v != "" && err == nil {
			if *dst, err = strconv.ParseBool(v); err != nil {
				err = fmt.Errorf("invalid %s: %q", name, v)
			}
		}
	}

	floatParam("risk_free_rate", &s.RiskFreeRate)
	floatParam("periods_per_year", &s.Estimator.PeriodsPerYear)
	floatParam("correlation_threshold", &s.CorrelationThreshold)
	intParam("samples", &s.Samples)
	intParam("frontier_points", &s.FrontierPoints)
	intParam("rolling_window", &s.RollingWindow)
	boolParam("include_weights", &s.IncludeSampleWeights)
	boolParam("rebased", &s.IncludeRebased)
	if v := q.Get("seed"); v != "" && err == nil {
		if s.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			err = fmt.Errorf("invalid seed: %q", v)
		}
	}
	if err != nil {
		return s, err
	}

	if limit := opts.sampleLimit(); s.Samples > limit {
		return s, fmt.Errorf("invalid samples: %d exceeds the limit of %d", s.Samples, limit)
	}
	if limit := opts.frontierPointLimit(); s.FrontierPoints > limit {
		return s, fmt.Errorf("invalid frontier_points: %d exceeds the limit of %d", s.FrontierPoints, limit)
	}
	if s.Estimator.PeriodsPerYear <= 0 {
		return s, fmt.Errorf("invalid periods_per_year: must be positive")
	}
	if v := q.Get("annualization"); v != "" {
		if s.Estimator.Annualization, err = optimization.ParseAnnualization(v); err != nil {
			return s, err
		}
	}
	if v := q.Get("covariance"); v != "" {
		if s.Estimator.Covariance, err = optimization.ParseCovarianceMethod(v); err != nil {
			return s, err
		}
	}
	if v := q.Get("alignment"); v != "" {
		if s.Estimator.Alignment, err = optimization.ParseAlignmentPolicy(v); err != nil {
			return s, err
		}
	}
	if v := q.Get("linkage"); v != "" {
		if s.Linkage, err = optimization.ParseLinkage(v); err != nil {
			return s, err
		}
	}
	if v := q.Get("bounds"); v != "" {
		if s.Bounds, err = optimization.ParseBounds(v); err != nil {
			return s, err
		}
	}
	return s, nil
}

// statusFor maps analysis errors to HTTP status codes. Domain errors mean the
// input cannot be optimized as given; they are not retryable.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, optimization.ErrSolverTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, optimization.ErrInsufficientData),
		errors.Is(err, optimization.ErrMisalignedSeries),
		errors.Is(err, optimization.ErrSingularCovariance),
		errors.Is(err, optimization.ErrInfeasibleConstraints),
		errors.Is(err, optimization.ErrDegenerateSharpe),
		errors.Is(err, optimization.ErrNoExcessReturn),
		errors.Is(err, domain.ErrInvalidSeries):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		status = http.StatusRequestEntityTooLarge
	}
	h.write(w, r, status, map[string]interface{}{
		"error": err.Error(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// write encodes data as msgpack when the client asks for it and as JSON otherwise.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		enc := msgpack.NewEncoder(w)
		if err := enc.Encode(data); err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
		}
		return
	}
	h.writeJSON(w, status, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
