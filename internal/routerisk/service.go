package routerisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/evanhutnik/routerisk-service/internal/common"
	"github.com/evanhutnik/routerisk-service/internal/config"
	"github.com/evanhutnik/routerisk-service/internal/export"
	"github.com/evanhutnik/routerisk-service/internal/observability"
	ow "github.com/evanhutnik/routerisk-service/internal/openweather"
	"github.com/evanhutnik/routerisk-service/internal/osrm"
	ps "github.com/evanhutnik/routerisk-service/internal/positionstack"
	"github.com/evanhutnik/routerisk-service/internal/publisher"
	"github.com/evanhutnik/routerisk-service/internal/sampler"
	t "github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/evanhutnik/routerisk-service/internal/weathercache"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Bounds on the caller-supplied sample interval. The lower bound caps how many
// weather and reverse geocode calls a single request can cause.
const (
	minIntervalKm = 1
	maxIntervalKm = 1000
)

type RouteRequest struct {
	from       string
	to         string
	intervalKm float64
}

type errorResponse struct {
	Error string `json:"error"`
}

type Service struct {
	engine          *Engine
	rc              *redis.Client
	nats            *publisher.NATSPublisher
	httpServer      *http.Server
	defaultInterval float64
	requestTimeout  time.Duration

	Logger *zap.SugaredLogger
}

// New wires the upstream clients, optional Redis cache and NATS publisher from cfg.
func New(cfg *config.Config, logger *zap.SugaredLogger, metrics *observability.Metrics, gatherer prometheus.Gatherer) (*Service, error) {
	s := &Service{
		defaultInterval: cfg.SampleIntervalKm,
		requestTimeout:  cfg.RequestTimeout,
		Logger:          logger,
	}

	retry := common.Retry{Attempts: cfg.HTTPRetries, InitialInterval: common.DefaultRetry.InitialInterval}
	hc := &http.Client{Timeout: cfg.RequestTimeout}

	psc := ps.New(
		ps.ApiKeyOption(cfg.PositionstackApiKey),
		ps.BaseUrlOption(cfg.PositionstackBaseUrl),
		ps.HttpClientOption(hc),
		ps.RetryOption(retry),
	)

	router := osrm.New(
		osrm.BaseUrlOption(cfg.OsrmBaseUrl),
		osrm.HttpClientOption(hc),
		osrm.RetryOption(retry),
	)

	var weather WeatherGateway = ow.New(
		ow.ApiKeyOption(cfg.OpenweatherApiKey),
		ow.BaseUrlOption(cfg.OpenweatherBaseUrl),
		ow.HttpClientOption(hc),
		ow.RetryOption(retry),
	)

	if !cfg.DisableRedis {
		s.rc = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddress,
		})
		weather = weathercache.New(weather, s.rc,
			weathercache.TTLOption(cfg.WeatherCacheTTL),
			weathercache.RadiusOption(cfg.CacheRadiusKm),
			weathercache.MetricsOption(metrics),
			weathercache.LoggerOption(logger),
		)
	}

	opts := []EngineOption{
		SamplerOption(sampler.New(sampler.PolicyOption(cfg.SamplePolicy))),
		MaxConcurrencyOption(cfg.MaxConcurrentLookups),
		MetricsOption(metrics),
		LoggerOption(logger),
	}
	if cfg.NatsUrl != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NatsUrl, cfg.NatsSubject, metrics, logger)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		s.nats = pub
		opts = append(opts, PublisherOption(pub))
	}

	s.engine = NewEngine(psc, router, weather, opts...)
	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.Handler(gatherer),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewWithEngine builds a Service around an existing engine, mostly for tests.
func NewWithEngine(engine *Engine, defaultInterval float64, requestTimeout time.Duration, logger *zap.SugaredLogger) *Service {
	return &Service{
		engine:          engine,
		defaultInterval: defaultInterval,
		requestTimeout:  requestTimeout,
		Logger:          logger,
	}
}

func (s *Service) Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /route", s.RouteHandler)
	mux.HandleFunc("GET /route.csv", s.RouteCSVHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start listens until Shutdown. Returns http.ErrServerClosed on graceful shutdown.
func (s *Service) Start() error {
	s.Logger.Infow("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Service) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.nats != nil {
		s.nats.Close()
	}
	if s.rc != nil {
		if cerr := s.rc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Service) RouteHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.route(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, report)
}

func (s *Service) RouteCSVHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.route(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(report.Origin, report.Destination)))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, report.Records); err != nil {
		s.Logger.Warnw("failed writing csv response", "error", err)
	}
}

func (s *Service) route(r *http.Request) (*t.RouteRiskReport, error) {
	req, err := s.parseRequest(r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	return s.engine.EvaluateRoute(ctx, req.from, req.to, req.intervalKm)
}

func (s *Service) parseRequest(r *http.Request) (*RouteRequest, error) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		return nil, CodeError{code: http.StatusBadRequest, msg: "Missing 'from' query parameter in request"}
	} else if to == "" {
		return nil, CodeError{code: http.StatusBadRequest, msg: "Missing 'to' query parameter in request"}
	}
	req := &RouteRequest{
		from:       from,
		to:         to,
		intervalKm: s.defaultInterval,
	}

	if v := r.URL.Query().Get("interval"); v != "" {
		interval, err := strconv.ParseFloat(v, 64)
		if err != nil || interval < minIntervalKm || interval > maxIntervalKm {
			return nil, CodeError{code: http.StatusBadRequest, msg: fmt.Sprintf("'interval' parameter must be a number of kilometres between %d and %d", minIntervalKm, maxIntervalKm)}
		}
		req.intervalKm = interval
	}
	return req, nil
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	codeErr := codeErrorFor(err)
	if codeErr.code >= http.StatusInternalServerError {
		s.Logger.Errorw("route evaluation failed", "kind", KindOf(err).String(), "error", err)
	}
	bodyBytes, _ := json.Marshal(errorResponse{Error: codeErr.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(codeErr.code)
	_, _ = w.Write(bodyBytes)
}

func (s *Service) writeResponse(w http.ResponseWriter, report *t.RouteRiskReport) {
	bodyBytes, err := json.Marshal(report)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bodyBytes)
}
