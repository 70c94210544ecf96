// Command auth-stub serves a static session-introspection endpoint for local
// development and integration tests, standing in for the hosted auth
// provider. Tokens and their profiles come from a JSON file:
//
//	{"tok-ava": {"id": "user-1", "name": "Ava Chen", "email": "ava@example.com"}}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"
)

type profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

func main() {
	var (
		addr       string
		tokensFile string
	)

	flag.StringVar(&addr, "addr", "0.0.0.0:9090", "listen address")
	flag.StringVar(&tokensFile, "tokens-file", "tokens.json", "path to token -> profile JSON file")
	flag.Parse()

	data, err := os.ReadFile(tokensFile)
	if err != nil {
		slog.Error("read tokens file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var tokens map[string]profile
	if err := json.Unmarshal(data, &tokens); err != nil {
		slog.Error("parse tokens file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           introspectionHandler(tokens),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("auth stub listening", slog.String("addr", addr), slog.Int("tokens", len(tokens)))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("serve", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func introspectionHandler(tokens map[string]profile) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p, ok := tokens[strings.TrimPrefix(header, prefix)]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	})
}
