//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/himanishpuri/ToneMatch/pkg/logger"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/audio"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/spectrum"
)

var (
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	backend        string
	workers        int
	allowedOrigins string
	logRequests    bool
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("TONEMATCH_DB_PATH", "tonematch.sqlite3"), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("TONEMATCH_TEMP_DIR", "/tmp"), "Temporary directory")
	flag.IntVar(&sampleRate, "rate", audio.DefaultSampleRate, "Analysis sample rate")
	flag.StringVar(&backend, "backend", "go-dsp", "FFT backend (go-dsp or gonum)")
	flag.IntVar(&workers, "workers", 0, "Spectrum worker goroutines (0 = GOMAXPROCS)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()

	service, err := tonematch.NewService(
		tonematch.WithDBPath(dbPath),
		tonematch.WithTempDir(tempDir),
		tonematch.WithSampleRate(sampleRate),
		tonematch.WithBackend(spectrum.BackendByName(backend)),
		tonematch.WithWorkers(workers),
	)
	if err != nil {
		logger.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		AllowedOrigins: parseOrigins(allowedOrigins),
		LogRequests:    logRequests,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
