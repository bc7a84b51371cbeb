package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/goblingibber/arena/src/app/arena"
	"github.com/goblingibber/arena/src/infra/gateway"
)

type ServerConfig struct {
	Logger         *zap.Logger
	Engine         *arena.Engine
	Hub            *gateway.Hub
	AllowedOrigins []string
}

// Server wires HTTP endpoints to the engine and gateway with observability
// instrumentation.
type Server struct {
	cfg            ServerConfig
	router         *mux.Router
	startedAt      time.Time
	httpMetrics    *prometheus.HistogramVec
	requestCounter *prometheus.CounterVec
}

func NewServer(cfg ServerConfig) *Server {
	srv := &Server{cfg: cfg, startedAt: time.Now()}
	srv.initMetrics()
	srv.buildRouter()
	return srv
}

func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
	)(s.router)
}

func (s *Server) initMetrics() {
	s.httpMetrics = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "http",
		Name:      "request_latency_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
	s.requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route",
	}, []string{"route", "method", "code"})
	queueGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "arena",
		Subsystem: "engine",
		Name:      "waiting_players",
		Help:      "Participants currently in the match queue",
	}, func() float64 {
		return float64(s.cfg.Engine.Status(context.Background()).WaitingPlayers)
	})
	sessionGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "arena",
		Subsystem: "engine",
		Name:      "active_sessions",
		Help:      "Battle sessions currently active",
	}, func() float64 {
		return float64(s.cfg.Engine.Status(context.Background()).ActiveSessions)
	})
	prometheus.MustRegister(s.httpMetrics, s.requestCounter, queueGauge, sessionGauge)
}

func (s *Server) buildRouter() {
	r := mux.NewRouter()
	r.Use(s.correlationMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/ws", s.cfg.Hub.ServeWS).Methods(http.MethodGet)
	r.Handle("/health", otelhttp.NewHandler(http.HandlerFunc(s.handleHealth), "Health")).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router = r
}

type healthResponse struct {
	Status         string `json:"status"`
	Timestamp      int64  `json:"timestamp"`
	WaitingPlayers int    `json:"waitingPlayers"`
	ActiveBattles  int    `json:"activeBattles"`
	UptimeSeconds  int64  `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.cfg.Engine.Status(r.Context())
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Timestamp:      time.Now().UnixMilli(),
		WaitingPlayers: report.WaitingPlayers,
		ActiveBattles:  report.ActiveSessions,
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.cfg.Logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", correlationIDFromContext(r.Context())),
		)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := mux.CurrentRoute(r)
		routeName := "unknown"
		if route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				routeName = tmpl
			}
		}
		codeLabel := strconv.Itoa(rw.status)
		labels := prometheus.Labels{"route": routeName, "method": r.Method, "code": codeLabel}
		s.httpMetrics.With(labels).Observe(time.Since(start).Seconds())
		s.requestCounter.With(labels).Inc()
	})
}

// responseWriter captures HTTP status codes for logging/metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps the websocket upgrade working behind the middleware wrappers.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
