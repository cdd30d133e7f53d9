// Package main is a command-line client for the grants API.
//
// Usage:
//
//	grantctl [flags] <command> [args]
//
// The API base URL and session token come from -api/-token or the
// GRANTS_API_URL and GRANTS_TOKEN environment variables (.env is read too).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattlim-fl/ai-grant-applications/internal/config"
)

// cliConfig holds grantctl settings.
type cliConfig struct {
	BaseURL string        `env:"GRANTS_API_URL" envDefault:"http://localhost:8080/api"`
	Token   string        `env:"GRANTS_TOKEN"`
	Timeout time.Duration `env:"GRANTS_TIMEOUT" envDefault:"30s"`
	JSON    bool          `env:"GRANTS_JSON"`
}

// parseConfig reads the environment, then lets flags override it.
func parseConfig(fs *flag.FlagSet, args []string) (cliConfig, error) {
	var cfg cliConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return cliConfig{}, err
	}
	fs.StringVar(&cfg.BaseURL, "api", cfg.BaseURL, "API base URL")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "session bearer token")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "print JSON instead of tables")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("grantctl", flag.ExitOnError)
	fs.Usage = func() { usage(fs.Output(), fs) }
	cfg, err := parseConfig(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, fs.Args(), os.Stdout, os.Stderr))
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `Usage: grantctl [flags] <command> [args]

Commands:
  whoami                              show the session user
  orgs                                list organizations (* marks current)
  switch <org-id>                     change the current organization
  create-org <name>                   create an organization and make it current
  projects                            list projects
  show <project-id>                   show a project and its documents
  reorder <project-id> <doc-id>...    set the document order
  write <project-id> <doc-id> <text>  replace a document's content

Flags:
`)
	fs.PrintDefaults()
}
