// FloatChat - conversational access to ARGO ocean float data.
// Entry point: HTTP API server, MCP stdio server and token minting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floatchat/floatchat/internal/domain/sqlgen"
	"github.com/floatchat/floatchat/internal/domain/tools"
	"github.com/floatchat/floatchat/internal/infra/config"
	"github.com/floatchat/floatchat/internal/infra/postgres"
	"github.com/floatchat/floatchat/internal/mcpserver"
	"github.com/floatchat/floatchat/internal/server"
	"github.com/floatchat/floatchat/internal/version"
	pkgauth "github.com/floatchat/floatchat/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("floatchat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	switch fs.Arg(0) {
	case "", "serve":
		return runServe(fs.Args(), out)
	case "mcp":
		return runMCP(out)
	case "token":
		return runToken(fs.Args()[1:], out)
	default:
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

// runServe starts the HTTP API server and blocks until SIGINT/SIGTERM.
func runServe(args []string, out io.Writer) int {
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	host := fs.String("host", "0.0.0.0", "Listen address")
	port := fs.Int("port", 8080, "Listen port")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCfg := server.DefaultConfig()
	srvCfg.Host = *host
	srvCfg.Port = *port

	srv, err := server.NewServer(ctx, config.Load(), srvCfg)
	if err != nil {
		fmt.Fprintf(out, "startup error: %v\n", err) //nolint:errcheck
		return 1
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(out, "shutdown error: %v\n", err) //nolint:errcheck
			return 1
		}
		return 0
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(out, "server error: %v\n", err) //nolint:errcheck
			return 1
		}
		return 0
	}
}

// runMCP serves the analysis tool catalog over stdio for MCP clients.
// Only the database-backed tool layer is wired; no HTTP, no LLM keys needed.
func runMCP(out io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		fmt.Fprintf(out, "startup error: %v\n", err) //nolint:errcheck
		return 1
	}

	whitelist := rules.Tables
	if len(whitelist) == 0 {
		whitelist = sqlgen.DefaultWhitelist()
	}
	validator := sqlgen.NewValidator(whitelist, cfg.DefaultRowLimit)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(out, "startup error: %v\n", err) //nolint:errcheck
		return 1
	}
	defer pool.Close()

	registry := tools.NewBuiltinRegistry(postgres.NewExecutor(pool), validator)

	if err := mcpserver.Run(ctx, registry); err != nil {
		fmt.Fprintf(out, "mcp server error: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

// runToken mints an API token for a client id.
func runToken(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	clientID := fs.String("client", "", "Client id to embed in the token")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *clientID == "" {
		fmt.Fprintln(out, "token: -client is required") //nolint:errcheck
		return 2
	}

	if !pkgauth.Enabled() {
		fmt.Fprintln(out, "token: FLOATCHAT_JWT_SECRET is not set") //nolint:errcheck
		return 1
	}

	token, err := pkgauth.GenerateToken(*clientID)
	if err != nil {
		fmt.Fprintf(out, "token: %v\n", err) //nolint:errcheck
		return 1
	}

	fmt.Fprintln(out, token) //nolint:errcheck
	return 0
}

func printHelp(out io.Writer) {
	helpText := `FloatChat - conversational access to ARGO ocean float data

Usage:
  floatchat [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the HTTP API server (default)
  mcp          Serve the analysis tools over MCP stdio
  token        Mint an API token (requires FLOATCHAT_JWT_SECRET)

Examples:
  floatchat --version
  floatchat serve --port 8080
  floatchat mcp
  floatchat token --client grafana`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
