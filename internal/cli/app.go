package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"studyroom/internal/auth"
	"studyroom/internal/availability"
	"studyroom/internal/config"
	"studyroom/internal/history"
	"studyroom/internal/lifecycle"
	"studyroom/internal/roomsync"
	"studyroom/internal/store"
)

// app wires one command invocation: store client, sync controller, lifecycle
// manager and the local history.
type app struct {
	cfg     *config.ClientConfig
	loc     *time.Location
	claims  *auth.JWTClaims
	client  *store.Client
	sync    *roomsync.Controller
	manager *lifecycle.Manager
	history *history.Store
}

// newApp loads the client config and token. onApply, if set, runs after every
// snapshot swap.
func newApp(onApply func(*availability.Snapshot)) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	token, err := resolveToken(cfg.Token)
	if err != nil {
		return nil, err
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		return nil, fmt.Errorf("token is not usable: %w", err)
	}

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}

	client := store.NewClient(cfg.APIURL, token)
	ctrl := roomsync.New(client, roomsync.Options{
		Location: loc,
		Interval: cfg.PollInterval,
		OnApply:  onApply,
	})
	mgr := lifecycle.NewManager(client, ctrl, lifecycle.Options{
		Location: loc,
		DailyCap: cfg.DailyCap,
		History:  hist,
	})

	return &app{
		cfg:     cfg,
		loc:     loc,
		claims:  claims,
		client:  client,
		sync:    ctrl,
		manager: mgr,
		history: hist,
	}, nil
}

func (a *app) Close() {
	_ = a.history.Close()
}

// refresh loads a snapshot before a one-shot command evaluates anything.
func (a *app) refresh(ctx context.Context) error {
	if err := a.sync.Refresh(ctx); err != nil {
		return fmt.Errorf("could not load availability: %w", err)
	}
	return nil
}

// resolveToken prompts on a terminal when STUDYROOM_TOKEN is not set.
func resolveToken(configured string) (string, error) {
	if token := strings.TrimSpace(configured); token != "" {
		return token, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no token. Set STUDYROOM_TOKEN")
	}
	fmt.Fprint(os.Stderr, "Access token: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("token is required")
	}
	return token, nil
}
