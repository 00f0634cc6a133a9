package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/helmcode/zeropatch/pkg/config"
	"github.com/helmcode/zeropatch/pkg/service"
	"github.com/helmcode/zeropatch/pkg/workflow"
	"github.com/spf13/cobra"
)

// Version is reported in the User-Agent header. Overwritten at build time.
var Version = "dev"

// sessionOptions are the flags shared by every command that talks to the service.
type sessionOptions struct {
	configPath string
	server     string
	timeout    time.Duration
	noColor    bool
}

func (o *sessionOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/zeropatch/config.yaml)")
	cmd.Flags().StringVar(&o.server, "server", "", "Analysis service base URL (default "+config.DefaultServer+")")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "Per-request timeout (default "+config.DefaultTimeout.String()+")")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "Disable coloured output")
}

// load resolves file, env and flag settings. Callers validate after applying
// their own overrides.
func (o *sessionOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("server") {
		cfg.Server = o.server
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout.Duration = o.timeout
	}
	if o.noColor {
		cfg.NoColor = true
	}
	if cfg.NoColor {
		color.NoColor = true
	}
	return cfg, nil
}

func newController(cfg *config.Config) *workflow.Controller {
	logger := slog.Default()
	client := service.NewClient(cfg.Server,
		service.WithTimeout(cfg.Timeout.Duration),
		service.WithUserAgent("zeropatch/"+Version),
		service.WithLogger(logger),
	)
	ctrl := workflow.New(client, workflow.WithLogger(logger))
	logger.Info("Session started", "session", ctrl.SessionID(), "server", client.BaseURL())
	return ctrl
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "✓ %s\n", msg)
}

func printError(w io.Writer, msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(w, "✗ %s\n", msg)
}

func printHeader(w io.Writer, ref, server string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(w)
	cyan.Fprintln(w, "🛡  ZeroPatch AI")
	fmt.Fprintf(w, "📦 Repository: %s\n", ref)
	fmt.Fprintf(w, "🌐 Server: %s\n", server)
	fmt.Fprintln(w)
}
