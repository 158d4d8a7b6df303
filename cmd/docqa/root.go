package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg      Config
	logger   *slog.Logger
	tokens   docqa.TokenSource
	keyring  *docqa.KeyringTokenStore
	executor *docqa.Executor
	breaker  *docqa.CircuitBreaker
	out      io.Writer
	in       io.Reader
}

// annotationNeedsAPI marks commands that talk to the API and need a valid URL.
const annotationNeedsAPI = "needs-api"

type rootFlags struct {
	configPath string
	apiURL     string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about your PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "API base URL (overrides DOCQA_API_URL)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newUploadCommand(a),
		newAskCommand(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	// The environment wins over the file and the flag wins over both.
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if cmd.Annotations[annotationNeedsAPI] == "true" {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.LogFormat = flags.logFormat
	}

	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.in = cmd.InOrStdin()
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	a.keyring = docqa.NewKeyringTokenStore(cfg.KeyringService, cfg.KeyringUser)
	a.tokens = a.keyring
	if cfg.Token != "" {
		a.tokens = docqa.NewStaticToken(cfg.Token)
	}

	var transport docqa.ResilientClient[*docqa.Request, *docqa.Response] = docqa.NewHTTPTransport(
		&http.Client{Timeout: cfg.HTTPTimeout},
	)
	if cfg.CircuitBreaker {
		a.breaker = docqa.NewCircuitBreaker(transport, docqa.WithCircuitBreakerLogger(a.logger))
		transport = a.breaker
	}

	opts := []docqa.ExecutorOption{
		docqa.WithMaxAttempts(cfg.MaxAttempts),
		docqa.WithInitialDelay(cfg.InitialDelay),
		docqa.WithLogger(a.logger),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, docqa.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	a.executor = docqa.NewExecutor(transport, opts...)
	return nil
}

// corrector merges the built-in corrections with those from the config file.
func (a *app) corrector() docqa.Corrector {
	table := docqa.DefaultCorrections()
	for from, to := range a.cfg.Corrections {
		table[from] = to
	}
	return docqa.NewStaticCorrector(table)
}

// report prints a failure and returns an error so the process exits non-zero.
func (a *app) report(o docqa.Outcome) error {
	f := o.Failure()
	if f == nil {
		return nil
	}
	fmt.Fprintln(a.out, f.Display())
	if f.Kind == docqa.KindAuthFailure {
		fmt.Fprintln(a.out, "Run `docqa login --token <token>` to sign in again.")
	}
	a.logger.Debug("executor health", "health", a.executor.Health(a.breaker))
	return f
}
