// cmd/api/main.go

// The api gateway fronts the membership service for the portal frontend. It
// exists so the frontend talks to one origin while backend surfaces stay
// free to split later.
package main

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	membershipURL, err := url.Parse(getEnv("MEMBERSHIP_SERVICE_URL", "http://localhost:8080"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid MEMBERSHIP_SERVICE_URL")
	}
	proxy := httputil.NewSingleHostReverseProxy(membershipURL)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream unavailable")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Handle("/api/v1/*", http.StripPrefix("/api/v1", proxy))

	port := getEnv("PORT", "8090")
	log.Info().Str("port", port).Msg("api gateway listening")
	server := &http.Server{Addr: ":" + port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
