package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/bill-tracker/internal/auth"
	"github.com/zombor/bill-tracker/internal/bills"
	"github.com/zombor/bill-tracker/internal/logging"
	"github.com/zombor/bill-tracker/internal/metrics"
	"github.com/zombor/bill-tracker/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	os.Exit(run(os.Args[1:]))
}

// run wires the application and blocks until shutdown. It returns the process
// exit code so deferred cleanup runs before exiting.
func run(args []string) int {
	fs := ff.NewFlagSet("bill-tracker")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dataDir        = fs.StringLong("data-dir", "./user_data", "Directory holding one bill ledger per user")
		usersDB        = fs.StringLong("users-db", "users.db", "Credential database file path")
		scannerType    = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		temperature    = fs.Float64Long("temperature", float64(scanning.DefaultGenerationConfig.Temperature), "Sampling temperature for bill extraction")
		maxTokens      = fs.IntLong("max-tokens", int(scanning.DefaultGenerationConfig.MaxOutputTokens), "Maximum tokens in the model reply")
		extractTimeout = fs.DurationLong("extract-timeout", 60*time.Second, "Timeout for a single model call (0 disables)")
		sessionSecret  = fs.StringLong("session-secret", "", "Secret used to sign session cookies (random when empty)")
		sessionTTL     = fs.DurationLong("session-ttl", 24*time.Hour, "Session lifetime")
		secureCookie   = fs.BoolLong("secure-cookie", "Mark the session cookie Secure (serve over HTTPS)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("BILL_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		return 0
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	logging.Setup(os.Stderr, level, isatty.IsTerminal(os.Stderr.Fd()))

	genConfig := scanning.GenerationConfig{
		Temperature:     float32(*temperature),
		MaxOutputTokens: int32(*maxTokens),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			return 1
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(ctx, apiKey, *geminiModel, genConfig)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			return 1
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel, genConfig)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			return 1
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or ollama")
		return 1
	}
	defer scanner.Close()

	slog.Info("Initializing credential store...", "path", *usersDB)
	credentials, err := auth.NewBoltCredentialStore(*usersDB)
	if err != nil {
		slog.Error("Failed to initialize credential store", "error", err)
		return 1
	}
	defer credentials.Close()

	slog.Info("Initializing ledgers...", "dir", *dataDir)
	ledgers, err := bills.NewLedgers(*dataDir)
	if err != nil {
		slog.Error("Failed to initialize ledgers", "error", err)
		return 1
	}
	defer ledgers.Close()

	secret := []byte(*sessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			slog.Error("Failed to generate session secret", "error", err)
			return 1
		}
		slog.Warn("No session secret configured; sessions will not survive a restart")
	}

	m := metrics.New()
	service := bills.NewService(ledgers, scanning.NewExtractor(scanner), m)
	server := bills.NewServer(
		service,
		auth.NewAuthenticator(credentials),
		auth.NewSessions(secret, *sessionTTL, *secureCookie),
		m,
		bills.Options{ExtractTimeout: *extractTimeout},
	)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server starting", "version", version, "address", fmt.Sprintf("http://localhost%s", addr))
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		return 1
	}

	slog.Info("Shutting down...")
	return 0
}
