package httpapi

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/tracing"
)

// RouterOptions — необязательные зависимости роутера.
type RouterOptions struct {
	Logger  *log.Entry
	Metrics *metrics.HTTPMetrics
	Tracer  trace.Tracer
	// CORSOrigins — разрешённые Origin; пусто означает любой.
	CORSOrigins []string
}

// NewRouter собирает маршруты /orders и общие middleware.
func NewRouter(svc OrderService, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracing.TracerName)
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := orderHandlers{svc: svc}

	r := mux.NewRouter()
	r.NotFoundHandler = notFoundHandler()
	r.MethodNotAllowedHandler = methodNotAllowedHandler()
	r.Use(tracingMiddleware(tracer), metricsMiddleware(opts.Metrics), recoverPanics(logger))

	r.HandleFunc("/orders", h.create).Methods(http.MethodPost)
	r.HandleFunc("/orders", h.list).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id}", h.delete).Methods(http.MethodDelete)

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Traceparent", "Tracestate"}),
	)
	return cors(requestLogger(logger)(r))
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}

func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
}
