package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/api"
	"github.com/MiringGroup/ADCNavigator/internal/email"
	"github.com/MiringGroup/ADCNavigator/internal/flow"
	"github.com/MiringGroup/ADCNavigator/internal/lockfile"
	"github.com/MiringGroup/ADCNavigator/internal/messaging"
	"github.com/MiringGroup/ADCNavigator/internal/notify"
	"github.com/MiringGroup/ADCNavigator/internal/store"
	"github.com/MiringGroup/ADCNavigator/internal/telegram"
	"github.com/MiringGroup/ADCNavigator/internal/twiliowhatsapp"
	"github.com/MiringGroup/ADCNavigator/internal/util"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ADC Navigator state data
	DefaultStateDir = "/var/lib/adcnavigator"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "adcnavigator.db"
)

var errUpdatesClosed = errors.New("telegram update stream closed")

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if *flags.token == "" {
		slog.Error("TELEGRAM_TOKEN is required")
		os.Exit(1)
	}
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping ADC Navigator")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_type", store.DetectDSNType(*flags.dbDSN),
		"redis_set", *flags.redisURL != "",
		"api_addr", *flags.apiAddr,
		"managers_set", *flags.managers != "",
		"admins_set", *flags.admins != "")
	if err := run(ctx, config, flags); err != nil {
		slog.Error("ADC Navigator failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ADC Navigator exited successfully")
}

// Config holds environment configuration
type Config struct {
	TelegramToken       string
	StateDir            string
	DatabaseURL         string
	RedisURL            string
	SessionTTL          time.Duration
	Managers            string
	Admins              string
	ResendAPIKey        string
	EmailFrom           string
	TwilioAccountSID    string
	APIAddr             string
	UnansweredMinLength int
	Debug               bool
}

// Flags holds command line flag values
type Flags struct {
	token    *string
	stateDir *string
	dbDSN    *string
	redisURL *string
	apiAddr  *string
	managers *string
	admins   *string
}

// initializeLogger sets up structured logging; DEBUG=true lowers the level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		StateDir:            os.Getenv("ADC_STATE_DIR"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		SessionTTL:          util.ParseDurationEnv("SESSION_TTL", 0),
		Managers:            os.Getenv("MANAGER_CHAT_ID"),
		Admins:              os.Getenv("ADMIN_CHAT_ID"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		EmailFrom:           os.Getenv("NOTIFY_EMAIL_FROM"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		APIAddr:             os.Getenv("API_ADDR"),
		UnansweredMinLength: util.ParseIntEnv("UNANSWERED_MIN_LENGTH", messaging.DefaultUnansweredMinLength),
		Debug:               util.ParseBoolEnv("DEBUG", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ADC_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.APIAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			config.APIAddr = ":" + port
		} else {
			config.APIAddr = api.DefaultAddr
		}
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_TOKEN_SET", config.TelegramToken != "",
		"ADC_STATE_DIR", config.StateDir,
		"DATABASE_URL_TYPE", store.DetectDSNType(config.DatabaseURL),
		"REDIS_URL_SET", config.RedisURL != "",
		"SESSION_TTL", config.SessionTTL,
		"MANAGER_CHAT_ID_SET", config.Managers != "",
		"ADMIN_CHAT_ID_SET", config.Admins != "",
		"RESEND_API_KEY_SET", config.ResendAPIKey != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"API_ADDR", config.APIAddr,
		"UNANSWERED_MIN_LENGTH", config.UnansweredMinLength)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := newFlags(flag.CommandLine, config)
	flag.Parse()
	applyStateDirDefault(config, flags)
	slog.Debug("flags parsed",
		"token_set", *flags.token != "",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisURL_set", *flags.redisURL != "",
		"apiAddr", *flags.apiAddr)
	return flags
}

func newFlags(fs *flag.FlagSet, config Config) Flags {
	return Flags{
		token:    fs.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_TOKEN)"),
		stateDir: fs.String("state-dir", config.StateDir, "state directory for ADC Navigator data (overrides $ADC_STATE_DIR)"),
		dbDSN:    fs.String("db-dsn", config.DatabaseURL, "lead database DSN, a PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		redisURL: fs.String("redis-url", config.RedisURL, "Redis URL for dialog sessions; empty keeps them in memory (overrides $REDIS_URL)"),
		apiAddr:  fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		managers: fs.String("managers", config.Managers, "comma-separated manager destinations (overrides $MANAGER_CHAT_ID)"),
		admins:   fs.String("admins", config.Admins, "comma-separated admin destinations (overrides $ADMIN_CHAT_ID)"),
	}
}

// applyStateDirDefault moves the default SQLite file along with an overridden state directory.
func applyStateDirDefault(config Config, flags Flags) {
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}
}

// ensureDirectoriesExist creates the state directory and, for SQLite, the database directory.
func ensureDirectoriesExist(flags Flags) error {
	dirs := []string{*flags.stateDir}
	if store.DetectDSNType(*flags.dbDSN) == store.DSNTypeSQLite {
		dirs = append(dirs, filepath.Dir(*flags.dbDSN))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// openSessionStore picks Redis when a URL is configured and memory otherwise.
func openSessionStore(ctx context.Context, redisURL string, ttl time.Duration) (store.SessionStore, error) {
	if redisURL == "" {
		slog.Debug("No Redis URL, keeping dialog sessions in memory")
		return store.NewMemorySessionStore(), nil
	}
	return store.NewRedisSessionStore(ctx, redisURL, ttl)
}

// buildNotifyClients creates the optional WhatsApp and email clients from configuration.
func buildNotifyClients(config Config, tg notify.TelegramSender) notify.Clients {
	clients := notify.Clients{Telegram: tg}
	if config.TwilioAccountSID != "" {
		wa, err := twiliowhatsapp.NewClient(twiliowhatsapp.WithAccountSID(config.TwilioAccountSID))
		if err != nil {
			slog.Warn("Twilio WhatsApp client disabled", "error", err)
		} else {
			clients.WhatsApp = wa
		}
	}
	if config.ResendAPIKey != "" {
		mail, err := email.NewResendClient(config.ResendAPIKey, config.EmailFrom)
		if err != nil {
			slog.Warn("Resend email client disabled", "error", err)
		} else {
			clients.Email = mail
		}
	}
	return clients
}

// buildNotifier resolves staff destinations and creates the notifier. Bad
// destination entries are logged and skipped.
func buildNotifier(config Config, flags Flags, clients notify.Clients, unanswered store.UnansweredRepo) *notify.Notifier {
	managers, err := notify.ParseDestinations(*flags.managers, clients)
	if err != nil {
		slog.Warn("Some manager destinations were skipped", "error", err)
	}
	admins, err := notify.ParseDestinations(*flags.admins, clients)
	if err != nil {
		slog.Warn("Some admin destinations were skipped", "error", err)
	}
	if len(managers) == 0 {
		slog.Warn("No manager destinations configured, lead notifications are disabled")
	}
	slog.Debug("Notifier destinations resolved", "managers", len(managers), "admins", len(admins))
	return notify.NewNotifier(
		notify.WithManagers(managers...),
		notify.WithAdmins(admins...),
		notify.WithUnansweredLog(unanswered),
		notify.WithMinLength(config.UnansweredMinLength),
	)
}

// run wires every component and blocks until ctx is done or a component fails.
func run(ctx context.Context, config Config, flags Flags) (err error) {
	tg, err := telegram.NewClient(telegram.WithToken(*flags.token), telegram.WithDebug(config.Debug))
	if err != nil {
		return err
	}

	lock, err := lockfile.Acquire(*flags.stateDir, tg.Username())
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			slog.Warn("Failed to release lock file", "path", lock.Path(), "error", rerr)
		}
	}()

	st, err := store.Open(*flags.dbDSN)
	if err != nil {
		return fmt.Errorf("failed to open lead store: %w", err)
	}
	defer func() { err = errors.Join(err, st.Close()) }()

	sessions, err := openSessionStore(ctx, *flags.redisURL, config.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if c, ok := sessions.(io.Closer); ok {
		defer func() { err = errors.Join(err, c.Close()) }()
	}

	a := newApp(config, flags, tg, st, sessions)
	slog.Info("ADC Navigator is running", "bot", tg.Username(), "api_addr", a.server.Addr())
	return a.serve(ctx)
}

// app holds the wired runtime components.
type app struct {
	svc        *messaging.TelegramService
	dispatcher *messaging.Dispatcher
	server     *api.Server
}

func newApp(config Config, flags Flags, tg *telegram.Client, st store.Store, sessions store.SessionStore) *app {
	notifier := buildNotifier(config, flags, buildNotifyClients(config, tg), st)
	engine := flow.NewEngine(sessions, st, flow.WithNotifier(notifier))

	svc := messaging.NewTelegramService(tg)
	router := messaging.NewRouter(svc, engine, st,
		messaging.WithUnansweredNotifier(notifier),
		messaging.WithUnansweredMinLength(notifier.MinLength()))
	return &app{
		svc:        svc,
		dispatcher: messaging.NewDispatcher(router, messaging.WithDedup(st)),
		server:     api.NewServer(st, st, api.WithAddr(*flags.apiAddr)),
	}
}

// serve starts polling and blocks until ctx is done or a component fails.
func (a *app) serve(ctx context.Context) error {
	if err := a.svc.Start(ctx); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.dispatcher.Run(gctx, a.svc.Events())
		if gctx.Err() == nil {
			return errUpdatesClosed
		}
		return nil
	})
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down ADC Navigator")
		return a.svc.Stop()
	})
	return g.Wait()
}
