package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/config"
	"github.com/meetthepeople/mtp/internal/session"
)

var errNotLoggedIn = errors.New("not logged in; run `mtp login --mobile <number>` first")

type app struct {
	cfg     config.Config
	store   session.Store
	session *session.Session
	client  *api.Client
	out     io.Writer
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".mtp", "config.yaml")
	}
	return filepath.Join(home, ".mtp", "config.yaml")
}

func openApp(ctx context.Context, opts *rootOptions, out io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var store session.Store
	if opts.ephemeral {
		store = session.NewMemoryStore()
	} else {
		store, err = session.OpenSQLite(ctx, cfg.Session.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
	}
	s := session.New(store)
	client := api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        time.Duration(cfg.API.TimeoutSec) * time.Second,
		Tokens:         s,
		OnUnauthorized: s.HandleUnauthorized,
	})
	log.Printf("event=app_opened session=%s base_url=%s ephemeral=%t", s.ID(), client.BaseURL(), opts.ephemeral)
	return &app{cfg: cfg, store: store, session: s, client: client, out: out}, nil
}

func (a *app) Close() {
	runShutdownStep("session_close", 2*time.Second, func() {
		if err := a.store.Close(); err != nil {
			log.Printf("event=session_close_failed err=%v", err)
		}
	})
}

func (a *app) requireLogin(ctx context.Context) error {
	ok, err := a.session.Authenticated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNotLoggedIn
	}
	return nil
}

// currentUser returns the signed-in user as stored at login.
func (a *app) currentUser(ctx context.Context) (api.User, error) {
	if err := a.requireLogin(ctx); err != nil {
		return api.User{}, err
	}
	user, ok, err := a.session.User(ctx)
	if err != nil {
		return api.User{}, err
	}
	if !ok {
		return api.User{}, errNotLoggedIn
	}
	return user, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// run opens the app for one command invocation.
func run(opts *rootOptions, authed bool, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx, opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		if authed {
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
		}
		return fn(ctx, a, args)
	}
}
