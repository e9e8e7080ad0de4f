package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

var wildcardHosts = []string{"*"}

// Server serves JSON-RPC over HTTP next to health and metrics endpoints.
type Server struct {
	endpoint   string
	apis       []rpc.API
	appVersion string
	registry   *prometheus.Registry
	limiter    *rate.Limiter
	httpServer *http.Server
	listener   net.Listener
	log        log.Logger
	rpcServer  *rpc.Server
}

type ServerOption func(b *Server)

func WithLogger(lgr log.Logger) ServerOption {
	return func(b *Server) {
		b.log = lgr
	}
}

// WithMetrics exposes the registry on /metrics.
func WithMetrics(registry *prometheus.Registry) ServerOption {
	return func(b *Server) {
		b.registry = registry
	}
}

// WithRateLimit limits requests across all clients. A non-positive limit
// disables the limiter.
func WithRateLimit(limit float64, burst int) ServerOption {
	return func(b *Server) {
		if limit <= 0 {
			b.limiter = nil
			return
		}
		b.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

func NewServer(host string, port int, appVersion string, opts ...ServerOption) *Server {
	endpoint := net.JoinHostPort(host, strconv.Itoa(port))
	bs := &Server{
		endpoint:   endpoint,
		appVersion: appVersion,
		log:        log.Root(),
		rpcServer:  rpc.NewServer(),
	}
	for _, opt := range opts {
		opt(bs)
	}
	bs.AddAPI(rpc.API{
		Namespace: "health",
		Service:   &healthzAPI{appVersion: appVersion},
	})
	return bs
}

// Endpoint returns the HTTP endpoint once the server is started.
func (b *Server) Endpoint() string {
	if b.listener == nil {
		return "http://" + b.endpoint
	}
	return "http://" + b.listener.Addr().String()
}

func (b *Server) AddAPI(api rpc.API) {
	b.apis = append(b.apis, api)
}

func (b *Server) Handler() (http.Handler, error) {
	for _, api := range b.apis {
		if err := b.rpcServer.RegisterName(api.Namespace, api.Service); err != nil {
			return nil, fmt.Errorf("failed to register API %s: %w", api.Namespace, err)
		}
		b.log.Info("registered API", "namespace", api.Namespace)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/healthz", b.healthzHandler)
	if b.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))
	}
	mux.Group(func(r chi.Router) {
		if b.limiter != nil {
			r.Use(limitMiddleware(b.limiter))
		}
		r.Handle("/", b.rpcServer)
	})
	return mux, nil
}

func (b *Server) Start() error {
	handler, err := b.Handler()
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", b.endpoint)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	b.listener = listener
	b.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := b.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log.Error("HTTP server failed", "err", err)
		}
	}()
	return nil
}

func (b *Server) Stop() error {
	if b.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := b.httpServer.Shutdown(ctx)
	b.rpcServer.Stop()
	return err
}

func (b *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, "{\"version\":%q}", b.appVersion)
}

func limitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type healthzAPI struct {
	appVersion string
}

func (h *healthzAPI) Status() string {
	return h.appVersion
}
