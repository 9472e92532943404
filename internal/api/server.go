package api

import (
	"fmt"
	"net/http"
	"pincode_service/internal/cache"
	"pincode_service/internal/shipping"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server представляет HTTP-сервер.
type Server struct {
	port     string
	router   *chi.Mux
	resolver shipping.RateResolver
	cache    cache.Cache
}

// NewServer создает и настраивает новый экземпляр сервера.
func NewServer(port string, resolver shipping.RateResolver, cache cache.Cache) *Server {
	server := &Server{
		port:     port,
		resolver: resolver,
		cache:    cache,
	}
	server.router = server.setupRouter()
	return server
}

// Run запускает HTTP-сервер.
func (s *Server) Run() error {
	address := fmt.Sprintf(":%s", s.port)
	fmt.Printf("🚀 HTTP-сервер запущен на http://localhost%s\n", address)
	// Оборачиваем роутер в otelhttp для серверных спанов
	return http.ListenAndServe(address, otelhttp.NewHandler(s.router, "http-server"))
}

// setupRouter настраивает маршрутизацию.
func (s *Server) setupRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Обработчик API
	shippingHandler := NewShippingHandler(s.resolver, s.cache)
	router.Get("/api/shipping/{pincode}", shippingHandler.GetRate)

	// Метрики Prometheus
	router.Handle("/metrics", promhttp.Handler())

	return router
}
