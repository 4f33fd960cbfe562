package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/PratikLad0/job-search-automation/internal/browser"
	"github.com/PratikLad0/job-search-automation/internal/config"
)

const defaultLoginURL = "https://www.linkedin.com/login"

// login opens a visible browser so the user can sign in by hand, then saves the
// session cookies for the automation service to reuse.
func main() {
	cfg := config.Load()
	config.InitLogger(cfg)

	url := flag.String("url", defaultLoginURL, "page to open for the manual login")
	statePath := flag.String("state", cfg.BrowserStatePath, "where to write the exported cookies")
	flag.Parse()
	if flag.NArg() > 0 {
		*url = flag.Arg(0)
	}

	if err := run(cfg, *url, *statePath); err != nil {
		slog.Error("Login helper failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, url, statePath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	manager := browser.NewManager(browser.Options{
		ProfileDir:     cfg.BrowserProfilePath,
		StatePath:      statePath,
		ExecPath:       cfg.BrowserExecPath,
		Headless:       false,
		AcquireTimeout: cfg.BrowserAcquireTimeout,
	})

	session, err := manager.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	defer session.Close()

	page, err := session.NewPage()
	if err != nil {
		return err
	}
	if err := page.Navigate(ctx, url, cfg.AutomationNavigationTimeout); err != nil {
		slog.Warn("Login page did not finish loading", "url", url, "error", err)
	}

	fmt.Println("Log in using the browser window, then press ENTER here to save the session.")

	entered := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(os.Stdin).ReadString('\n')
		entered <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-entered:
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
	}

	if err := session.ExportState(ctx, statePath); err != nil {
		return fmt.Errorf("failed to export browser state: %w", err)
	}
	fmt.Printf("Saved session to %s\n", statePath)
	return nil
}
