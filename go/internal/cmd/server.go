package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

// handlerProvider is implemented by every connect service in the repo.
type handlerProvider interface {
	Handler() (string, http.Handler)
}

func registerServices(mux *http.ServeMux, services *Services) {
	for _, svc := range []handlerProvider{
		services.Auction,
		services.Session,
		services.Timers,
		services.Leagues,
		services.Players,
		services.Rosters,
		services.Compliance,
		services.Ledger,
		services.Scheduler,
	} {
		path, handler := svc.Handler()
		mux.Handle(path, handler)
		log.Debug().Str("path", path).Msg("registered service")
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
