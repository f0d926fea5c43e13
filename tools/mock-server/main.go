// Package main implements a mock Google API server for local development.
// It serves a canned token endpoint, Analytics report responses, and a
// paged Merchant Center product status feed so gapctl can be exercised
// without real Google credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	statusFixture := flag.String("statuses", "tools/mock-server/testdata/productstatuses.json", "path to product statuses fixture")
	reportFixture := flag.String("report", "tools/mock-server/testdata/report.json", "path to Analytics report fixture")
	pageSize := flag.Int("page-size", 250, "product statuses page size")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	statuses, err := loadStatuses(*statusFixture)
	if err != nil {
		logger.Error("failed to load statuses fixture", "path", *statusFixture, "error", err)
		os.Exit(1)
	}

	report, err := os.ReadFile(*reportFixture) //nolint:gosec // fixture path from trusted flag
	if err != nil {
		logger.Error("failed to load report fixture", "path", *reportFixture, "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(logger))
	mux.HandleFunc("/v1beta/properties/", reportHandler(logger, report))
	mux.HandleFunc("/content/v2.1/", statusesHandler(logger, statuses, *pageSize))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("mock Google API server listening",
		"addr", addr,
		"statuses", len(statuses),
		"page_size", *pageSize,
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loadStatuses(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted flag
	if err != nil {
		return nil, err
	}

	var statuses []json.RawMessage
	if err := json.Unmarshal(data, &statuses); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return statuses, nil
}

// tokenHandler mimics the Google OAuth token endpoint for the
// refresh_token grant.
func tokenHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "refresh_token" {
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
			return
		}

		logger.Debug("issuing mock token", "client_id", r.Form.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "mock-access-token",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}
}

// reportHandler serves the canned report for any :runReport or
// :runRealtimeReport call.
func reportHandler(logger *slog.Logger, report []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":runReport") && !strings.Contains(r.URL.Path, ":runRealtimeReport") {
			http.NotFound(w, r)
			return
		}

		logger.Debug("serving mock report", "path", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(report)
	}
}

// statusesHandler pages the fixture feed through the Content API
// productstatuses shape, using the item offset as the page token.
func statusesHandler(logger *slog.Logger, statuses []json.RawMessage, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(strings.TrimRight(r.URL.Path, "/"), "productstatuses") {
			http.NotFound(w, r)
			return
		}

		start := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			n, err := strconv.Atoi(tok)
			if err != nil || n < 0 || n > len(statuses) {
				http.Error(w, `{"error":{"message":"invalid page token"}}`, http.StatusBadRequest)
				return
			}
			start = n
		}

		end := start + pageSize
		if end > len(statuses) {
			end = len(statuses)
		}

		page := map[string]any{"resources": statuses[start:end]}
		if end < len(statuses) {
			page["nextPageToken"] = strconv.Itoa(end)
		}

		logger.Debug("serving mock statuses page", "start", start, "end", end)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}
}
