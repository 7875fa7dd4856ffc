// Command pvault-server runs the PolicyVault HTTP API.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/search"
	"github.com/avior/policyvault/internal/server"
	"github.com/avior/policyvault/internal/store"
)

func main() {
	listen := flag.String("listen", envOrDefault("PVAULT_LISTEN", "0.0.0.0:8730"), "Listen address")
	dataDir := flag.String("data-dir", envOrDefault("PVAULT_DATA_DIR", "/var/lib/pvault-server"), "Data directory")
	logLevel := flag.String("log-level", envOrDefault("PVAULT_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("PVAULT_LOG_FORMAT", "json"), "Log format (json, text)")
	tlsCert := flag.String("tls-cert", os.Getenv("PVAULT_TLS_CERT"), "TLS certificate file")
	tlsKey := flag.String("tls-key", os.Getenv("PVAULT_TLS_KEY"), "TLS key file")
	searchURL := flag.String("search-url", os.Getenv("PVAULT_SEARCH_URL"), "Weaviate URL for the search index")
	webhookURLs := flag.String("webhook-urls", os.Getenv("PVAULT_WEBHOOK_URLS"), "Comma-separated webhook URLs notified on document events")
	rateLimit := flag.Int("rate-limit", 300, "Requests per minute per token (0 disables)")
	createToken := flag.String("create-token", "", "Create an API token with the given description and exit")
	readOnly := flag.Bool("read-only", false, "With -create-token, make the token read-only")
	flag.Parse()

	// Setup logger
	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", *dataDir)
		os.Exit(1)
	}

	// Token store (in-memory, loaded from JSON file)
	tokens := newFileTokenStore(filepath.Join(*dataDir, "tokens.json"), logger)
	if err := tokens.Load(); err != nil {
		logger.Warn("no token store loaded, starting empty", "error", err)
	}

	if *createToken != "" {
		raw, info, err := tokens.CreateToken(*createToken, *readOnly)
		if err != nil {
			logger.Error("failed to create token", "error", err)
			os.Exit(1)
		}
		fmt.Printf("token id: %s\ntoken:    %s\n", info.ID, raw)
		return
	}

	st, err := store.New(filepath.Join(*dataDir, "pvault.db"))
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Initialize(); err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	aud, err := audit.Open(filepath.Join(*dataDir, "audit.db"))
	if err != nil {
		logger.Error("failed to open audit ledger", "error", err)
		os.Exit(1)
	}
	defer aud.Close()

	var idx search.ClientInterface
	if *searchURL != "" {
		client, err := search.NewClient(*searchURL)
		if err != nil {
			logger.Error("failed to create search client", "error", err)
			os.Exit(1)
		}
		if err := client.EnsureSchema(context.Background()); err != nil {
			logger.Warn("search schema check failed, continuing without index", "error", err)
		} else {
			idx = client
			logger.Info("search index connected", "url", *searchURL)
		}
	}

	cfg := server.Config{
		Tokens:            tokens,
		RequestsPerMinute: *rateLimit,
		WebhookURLs:       splitURLs(*webhookURLs),
	}
	if len(cfg.WebhookURLs) > 0 {
		logger.Info("webhooks configured", "count", len(cfg.WebhookURLs))
	}

	h, stopHandler := server.NewHandler(st, aud, idx, logger, cfg)
	defer stopHandler()

	srv := &http.Server{
		Addr:         *listen,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return context.Background() },
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting pvault-server", "listen", *listen, "data_dir", *dataDir)
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func splitURLs(s string) []string {
	var urls []string
	for _, u := range strings.Split(s, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// fileTokenStore is a JSON-file-based token store.
type fileTokenStore struct {
	path   string
	mu     sync.RWMutex
	tokens map[string]*server.TokenInfo // keyed by token_hash
	logger *slog.Logger
}

func newFileTokenStore(path string, logger *slog.Logger) *fileTokenStore {
	return &fileTokenStore{
		path:   path,
		tokens: make(map[string]*server.TokenInfo),
		logger: logger,
	}
}

func (s *fileTokenStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var tokens []*server.TokenInfo
	if err := json.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("parse token store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make(map[string]*server.TokenInfo)
	for _, t := range tokens {
		s.tokens[t.TokenHash] = t
	}

	s.logger.Info("loaded tokens", "count", len(tokens))
	return nil
}

func (s *fileTokenStore) GetByHash(hash string) (*server.TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.tokens[hash]
	if !ok {
		return nil, nil
	}
	return info, nil
}

func (s *fileTokenStore) Save() error {
	s.mu.RLock()
	tokens := make([]*server.TokenInfo, 0, len(s.tokens))
	for _, t := range s.tokens {
		tokens = append(tokens, t)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *fileTokenStore) CreateToken(desc string, readOnly bool) (string, *server.TokenInfo, error) {
	rawToken := fmt.Sprintf("pvault_%s", generateID())
	tokenHash := server.HashToken(rawToken)

	info := &server.TokenInfo{
		ID:        generateID(),
		TokenHash: tokenHash,
		Desc:      desc,
		ReadOnly:  readOnly,
	}

	s.mu.Lock()
	s.tokens[tokenHash] = info
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		return "", nil, fmt.Errorf("persist token: %w", err)
	}

	return rawToken, info, nil
}

func generateID() string {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
