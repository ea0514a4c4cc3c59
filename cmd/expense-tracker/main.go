package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-tracker/internal/expense"
	"github.com/zombor/expense-tracker/internal/extraction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return nil
		}
	}

	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	fs := ff.NewFlagSet("expense-tracker")
	var (
		port          = fs.IntLong("port", 5000, "HTTP server port")
		storeType     = fs.StringLong("store", "bolt", "Line item store: 'bolt' or 'postgres'")
		dbPath        = fs.StringLong("db", "expense-tracker.db", "BoltDB file path")
		postgresDSN   = fs.StringLong("postgres-dsn", "", "PostgreSQL DSN (or set DATABASE_URL env var)")
		uploadStore   = fs.StringLong("upload-store", "local", "Temporary upload store: 'local' or 's3'")
		uploadDir     = fs.StringLong("upload-dir", "./uploads", "Temporary upload directory")
		s3Bucket      = fs.StringLong("s3-bucket", "", "S3 bucket for temporary uploads")
		s3Prefix      = fs.StringLong("s3-prefix", "uploads", "S3 key prefix for temporary uploads")
		s3Region      = fs.StringLong("s3-region", "", "S3 region")
		s3Endpoint    = fs.StringLong("s3-endpoint", "", "S3-compatible endpoint URL (MinIO, LocalStack)")
		s3AccessKey   = fs.StringLong("s3-access-key", "", "S3 access key (defaults to the AWS credential chain)")
		s3SecretKey   = fs.StringLong("s3-secret-key", "", "S3 secret key")
		extractorType = fs.StringLong("extractor", "mindee", "Extractor type: 'mindee', 'gemini' or 'ollama'")
		mindeeKey     = fs.StringLong("mindee-key", "", "Mindee API key (or set MINDEE_API_KEY env var)")
		mindeeURL     = fs.StringLong("mindee-url", "https://api.mindee.net", "Mindee API base URL")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		_             = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing database...", "store", *storeType)
	db, err := openDB(*storeType, *dbPath, envFallback(*postgresDSN, "DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	extractor, err := newExtractor(*extractorType, extractorOptions{
		mindeeKey:   envFallback(*mindeeKey, "MINDEE_API_KEY"),
		mindeeURL:   *mindeeURL,
		geminiKey:   envFallback(*geminiKey, "GEMINI_API_KEY"),
		geminiModel: *geminiModel,
		ollamaURL:   *ollamaURL,
		ollamaModel: *ollamaModel,
	})
	if err != nil {
		return fmt.Errorf("initializing extractor: %w", err)
	}
	defer extractor.Close()

	slog.Info("Initializing upload storage...", "type", *uploadStore)
	var store expense.Storage
	switch *uploadStore {
	case "local":
		store, err = expense.NewLocalStorage(*uploadDir)
	case "s3":
		store, err = expense.NewS3Storage(ctx, expense.S3Config{
			Bucket:    *s3Bucket,
			Prefix:    *s3Prefix,
			Region:    *s3Region,
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
		})
	default:
		err = fmt.Errorf("invalid upload store %q, valid: local or s3", *uploadStore)
	}
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	service := expense.NewService(db, extractor, store)
	server := expense.NewServer(service, expense.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if err := server.Start(ctx, addr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("Shutting down...")
	return nil
}

func openDB(storeType, boltPath, dsn string) (expense.DB, error) {
	switch storeType {
	case "bolt":
		return expense.NewBoltDB(boltPath)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires --postgres-dsn or DATABASE_URL")
		}
		return expense.NewPostgresDB(dsn)
	default:
		return nil, fmt.Errorf("invalid store %q, valid: bolt or postgres", storeType)
	}
}

type extractorOptions struct {
	mindeeKey   string
	mindeeURL   string
	geminiKey   string
	geminiModel string
	ollamaURL   string
	ollamaModel string
}

func newExtractor(extractorType string, opts extractorOptions) (extraction.Extractor, error) {
	switch extractorType {
	case "mindee":
		slog.Info("Initializing Mindee extractor...", "url", opts.mindeeURL)
		return extraction.NewMindee(opts.mindeeURL, opts.mindeeKey)
	case "gemini":
		slog.Info("Initializing Gemini extractor...", "model", opts.geminiModel)
		return extraction.NewGemini(opts.geminiKey, opts.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", opts.ollamaURL, "model", opts.ollamaModel)
		return extraction.NewOllama(opts.ollamaURL, opts.ollamaModel)
	default:
		return nil, fmt.Errorf("invalid extractor %q, valid: mindee, gemini or ollama", extractorType)
	}
}

// envFallback returns value, or the named environment variable when value is empty
func envFallback(value, envVar string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envVar)
}
