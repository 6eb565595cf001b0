package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"

	"github.com/dpup/meetpoint/server/internal/cache"
	"github.com/dpup/meetpoint/server/internal/clients/isochrone"
	"github.com/dpup/meetpoint/server/internal/config"
	"github.com/dpup/meetpoint/server/internal/observability"
	"github.com/dpup/meetpoint/server/internal/services"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	ctx := logging.EnsureLogger(context.Background())

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Region memoization, cleaned up in the background
	cacheInstance := cache.NewCache()
	if appConfig.Overlap.CacheTTL > 0 && appConfig.Overlap.CleanupInterval > 0 {
		cacheInstance.StartPeriodicCleanup(ctx, appConfig.Overlap.CleanupInterval, func(stats cache.CacheStats) {
			metrics.ObserveCacheEntries(stats.FreshEntries, stats.StaleEntries)
		})
	}

	meetingService, err := services.NewMeetingService(appConfig, cacheInstance, metrics)
	if err != nil {
		log.Fatalf("Failed to create meeting service: %v", err)
	}
	handlers := services.NewHTTPHandlers(meetingService, isochrone.NewParser(appConfig.Ingest.ParserOptions()))

	log.Printf("Meeting point API server starting")
	log.Printf("Region cache TTL: %s, default sort: %s, max results: %d",
		appConfig.Overlap.CacheTTL, appConfig.Ranking.DefaultSort, appConfig.Ranking.MaxResults)

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithHTTPHandlerFunc("/api/v1/overlap", metrics.Instrument("overlap", handlers.HandleOverlap)),
		prefab.WithHTTPHandlerFunc("/api/v1/validate", metrics.Instrument("validate", handlers.HandleValidate)),
		prefab.WithHTTPHandlerFunc("/api/v1/rank", metrics.Instrument("rank", handlers.HandleRank)),
		prefab.WithHTTPHandlerFunc("/metrics", metrics.Handler().ServeHTTP),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig, err := config.Load(prefab.Config)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return appConfig
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>meetpoint</title>
    <style>
        body { font-family: 'Courier New', Consolas, monospace; background: #000; color: #0f0; padding: 20px; line-height: 1.4; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">meetpoint</span>

Finds where two or more people can meet, given how far each can travel.

<span class="header">API Endpoints:</span>

  POST /api/v1/overlap    - Intersect isochrones (?format=geojson|kml)
  POST /api/v1/validate   - Check a meeting point against the overlap
  POST /api/v1/rank       - Filter and sort places inside the overlap
  GET  /metrics           - Prometheus metrics

<span class="header">Request body:</span>
  {"isochrones": &lt;GeoJSON FeatureCollection&gt;, "point": {"lng": .., "lat": ..},
   "candidates": [...], "sort": "distance|rating|relevance"}
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("Failed to write homepage HTML", "error", err)
	}
}
