package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"repo-index/config"
	"repo-index/gh"
	"repo-index/helpers"
	"repo-index/indexer"
	"repo-index/logging"
	"repo-index/metrics"
	"repo-index/render"

	"go.uber.org/zap"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	configPath     string
	saveConfigPath string
	envFile        string
	overrides      config.Config
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	defaults := config.DefaultConfig()
	var opts options

	fs := flag.NewFlagSet("repo-index", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Optional YAML config file")
	fs.StringVar(&opts.saveConfigPath, "save-config", "", "Write the effective configuration to this path and exit")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Optional .env file with REPO_INDEX_* variables")
	fs.StringVar(&opts.overrides.User, "user", defaults.User, "GitHub account handle or profile URL")
	fs.StringVar(&opts.overrides.Output, "output", defaults.Output, "Path of the generated HTML index")
	fs.StringVar(&opts.overrides.APIURL, "api-url", defaults.APIURL, "GitHub REST API base URL")
	fs.StringVar(&opts.overrides.Fallback, "fallback", defaults.Fallback, "Time for files without commit data: now, epoch or skip")
	fs.IntVar(&opts.overrides.PerPage, "per-page", defaults.PerPage, "Repositories requested per page (1-100)")
	fs.StringVar(&opts.overrides.Log.Level, "log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&opts.overrides.Log.Format, "log-format", defaults.Log.Format, "Log format: console or json")
	fs.StringVar(&opts.overrides.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	fs.BoolVar(&opts.overrides.Progress, "progress", defaults.Progress, "Show a progress bar")

	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return options{}, nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// loadConfig layers defaults, the YAML file, the environment and explicitly set flags.
func loadConfig(opts options, set map[string]bool) (config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, err
	}

	o := opts.overrides
	if set["user"] {
		cfg.User = o.User
	}
	if set["output"] {
		cfg.Output = o.Output
	}
	if set["api-url"] {
		cfg.APIURL = o.APIURL
	}
	if set["fallback"] {
		cfg.Fallback = o.Fallback
	}
	if set["per-page"] {
		cfg.PerPage = o.PerPage
	}
	if set["log-level"] {
		cfg.Log.Level = o.Log.Level
	}
	if set["log-format"] {
		cfg.Log.Format = o.Log.Format
	}
	if set["metrics-file"] {
		cfg.MetricsFile = o.MetricsFile
	}
	if set["progress"] {
		cfg.Progress = o.Progress
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newHTTPClient counts API calls on m. Requests rely on the transport's own
// limits; no overall timeout is set.
func newHTTPClient(m *metrics.Metrics) *http.Client {
	return &http.Client{Transport: m.InstrumentTransport(http.DefaultTransport)}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts, set)
	if err != nil {
		return err
	}

	if opts.saveConfigPath != "" {
		if err := config.SaveConfig(opts.saveConfigPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "[-] Configuration written to %s\n", opts.saveConfigPath)
		return nil
	}

	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	defer logging.Sync()

	account, err := helpers.ParseAccount(cfg.User)
	if err != nil {
		return fmt.Errorf("failed to parse account: %w", err)
	}

	m := metrics.New()
	client, err := gh.NewClient(newHTTPClient(m), cfg.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}
	client.PerPage = cfg.PerPage

	fmt.Fprintf(stdout, "[-] Account: %s\n", account.Login)
	fmt.Fprintf(stdout, "[-] Output: %s\n", cfg.Output)

	started := time.Now()
	bar := helpers.NewProgress(cfg.Progress, stderr, cfg.ProgressBarStyle)

	ix := indexer.New(client, cfg.FallbackPolicy())
	ix.Progress = bar
	res := ix.Run(ctx, account.Login)
	bar.Finish()

	written, err := render.WriteFile(cfg.Output, render.Page{
		User:        account.Login,
		ProfileURL:  account.ProfileURL,
		RepoCount:   len(res.Repos),
		Files:       res.Files,
		GeneratedAt: res.GeneratedAt,
		Fallback:    cfg.FallbackPolicy(),
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
	}

	m.SetRepositories(len(res.Repos))
	m.SetFiles(len(res.Files))
	m.AddFetchErrors(res.Errors)
	m.ObserveRunDuration(time.Since(started))
	m.MarkSuccess(time.Now())
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logging.L().Warn("metrics not written", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}

	fmt.Fprintf(stdout, "[-] Repositories: %d\n", len(res.Repos))
	fmt.Fprintf(stdout, "[-] Files indexed: %d\n", len(res.Files))
	if res.Errors > 0 {
		fmt.Fprintf(stdout, "[-] %s\n", helpers.Colorize(fmt.Sprintf("%d requests failed, see log", res.Errors), helpers.Yellow))
	}
	fmt.Fprintf(stdout, "[-] %s %s (%s)\n",
		helpers.Colorize("Index written to", helpers.Green), cfg.Output, helpers.FormatBytes(int64(written)))
	return nil
}
