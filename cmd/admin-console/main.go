package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/db"
	"github.com/nicholasglazer/admin-console/internal/services"
	"github.com/nicholasglazer/admin-console/internal/tui"
	"github.com/nicholasglazer/admin-console/internal/version"
	"github.com/nicholasglazer/admin-console/pkg/auth"
)

// sessionTokenEnv carries the identity provider token when no flag is given
const sessionTokenEnv = "ADMIN_CONSOLE_SESSION"

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON or YAML configuration file (default: ~/.config/admin-console/config.json)")
	sessionFlag := flag.String("session-token", "", "Session token issued by the identity provider (default: $"+sessionTokenEnv+")")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s  Override default config file path\n", config.ConfigPathEnv)
		fmt.Fprintf(os.Stderr, "  %s Session token when --session-token is not set\n", sessionTokenEnv)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	cfg, err := config.LoadConfig(getConfigPath(*configPathFlag))
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, logFile := tui.OpenLogger(expandPath(cfg.LogFile))
	if logFile != nil {
		defer logFile.Close()
	}

	caps, err := resolveCapabilities(cfg.Auth, getSessionToken(*sessionFlag), logger)
	if err != nil {
		log.Fatalf("Could not verify session: %v", err)
	}
	if err := caps.Require(tui.CapMail); err != nil {
		log.Fatalf("Admin console: %v", err)
	}

	ctx := context.Background()

	// backend calls carry the W3C trace headers so proxy logs line up
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	httpClient, err := newHTTPClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not configure backend credentials: %v", err)
	}
	client := backend.NewClient(cfg.Backend.BaseURL, httpClient)
	client.SetLogger(logger)

	var prefRepo services.PreferenceRepository
	if path := dbPath(cfg); path != "" {
		if store, err := db.Open(ctx, path); err == nil {
			defer store.Close()
			prefRepo = db.NewPreferenceStore(store)
		} else {
			log.Printf("Warning: could not open preference store: %v", err)
		}
	}

	svc := newServices(cfg, client, prefRepo, logger)
	svc.Access = caps

	app := tui.NewApp(cfg, svc, logger)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

// newServices builds the per-session state containers on top of one
// backend client
func newServices(cfg *config.Config, client *backend.Client, prefs services.PreferenceRepository, logger *log.Logger) tui.Services {
	clk := clock.Real()

	def, errDur := cfg.GetToastDurations()
	toasts := services.NewToastService(clk, services.ToastOptions{
		DefaultDuration: def,
		ErrorDuration:   errDur,
		MaxToasts:       cfg.Toast.MaxToasts,
	})

	mailbox := services.NewMailboxService(backend.NewMailAPI(client, cfg.Backend.MailPrefix), toasts, services.MailboxOptions{
		PageLimit:        cfg.Mail.PageLimit,
		MailboxCacheSize: cfg.Backend.AccountCache,
		Parallel:         cfg.Mail.Parallel,
		RollbackMarkRead: cfg.Mail.RollbackMarkRead,
	})

	database := backend.NewDatabase(client)
	orchestrator := backend.NewOrchestrator(client)
	board := services.NewBoardService(database, toasts, clk)
	qa := services.NewQAService(database, orchestrator, toasts, clk)
	workflows := services.NewWorkflowService(orchestrator, toasts, clk)
	preferences := services.NewPreferenceService(prefs, cfg.Theme)

	toasts.SetLogger(logger)
	mailbox.SetLogger(logger)
	board.SetLogger(logger)
	qa.SetLogger(logger)
	workflows.SetLogger(logger)
	preferences.SetLogger(logger)

	return tui.Services{
		Mailbox:     mailbox,
		Toasts:      toasts,
		Board:       board,
		QA:          qa,
		Workflows:   workflows,
		Preferences: preferences,
	}
}

// newHTTPClient injects the service credentials when any are configured
func newHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	creds := auth.ServiceCredentials{
		ServiceKey:   cfg.Auth.ServiceKey,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		TokenURL:     cfg.Auth.TokenURL,
		Scopes:       cfg.Auth.Scopes,
	}
	opts := backend.TransportOptions{
		Timeout:     cfg.GetBackendTimeout(),
		RateLimit:   cfg.Backend.RateLimit,
		Burst:       cfg.Backend.RateBurst,
		Propagators: otel.GetTextMapPropagator(),
	}
	switch err := creds.Validate(); {
	case errors.Is(err, auth.ErrNoCredentials):
	case err != nil:
		return nil, err
	default:
		opts.Credentials = func(base http.RoundTripper) (http.RoundTripper, error) {
			return creds.Transport(ctx, base)
		}
	}
	return backend.NewHTTPClient(opts)
}

// resolveCapabilities verifies the session token against the configured
// secret. Without a secret the console runs unrestricted.
func resolveCapabilities(cfg config.AuthConfig, token string, logger *log.Logger) (auth.Capabilities, error) {
	if cfg.SessionSecret == "" {
		if logger != nil {
			logger.Printf("session verification disabled: no session_secret configured")
		}
		return auth.Capabilities{auth.Wildcard}, nil
	}
	session, err := auth.VerifySession(token, []byte(cfg.SessionSecret))
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Printf("session: %s (%s) capabilities=%v", session.Subject, session.Email, session.Capabilities)
	}
	return session.Capabilities, nil
}

// getConfigPath returns the flag value or the default config path, which
// honours ADMIN_CONSOLE_CONFIG
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return expandPath(flagValue)
	}
	return config.DefaultConfigPath()
}

func getSessionToken(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return strings.TrimSpace(os.Getenv(sessionTokenEnv))
}

func dbPath(cfg *config.Config) string {
	if cfg.DBPath != "" {
		return expandPath(cfg.DBPath)
	}
	return config.DefaultDBPath()
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}
