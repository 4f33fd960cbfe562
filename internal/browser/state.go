package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
)

// Cookie is one saved browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds, <= 0 for session cookies
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// StorageState is the saved authentication snapshot of a browser
type StorageState struct {
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"saved_at"`
}

// LoadState reads a storage state file
func LoadState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state: %w", err)
	}
	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse storage state: %w", err)
	}
	return &state, nil
}

// Save writes the state to path, creating parent directories
func (s *StorageState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write storage state: %w", err)
	}
	return nil
}

func stateFromNetwork(cookies []*network.Cookie) *StorageState {
	state := &StorageState{
		Cookies: make([]Cookie, 0, len(cookies)),
		SavedAt: time.Now().UTC(),
	}
	for _, c := range cookies {
		expires := c.Expires
		if c.Session {
			expires = -1
		}
		state.Cookies = append(state.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return state
}

// importCookies sets every saved cookie in the browser. Individual failures are logged.
func importCookies(ctx context.Context, state *StorageState) (int, error) {
	if err := network.Enable().Do(ctx); err != nil {
		return 0, fmt.Errorf("failed to enable network domain: %w", err)
	}

	imported := 0
	now := time.Now()
	for _, c := range state.Cookies {
		set := network.SetCookie(c.Name, c.Value).
			WithDomain(strings.TrimPrefix(c.Domain, ".")).
			WithPath(c.Path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly)

		if c.Expires > 0 {
			expiresAt := time.Unix(int64(c.Expires), 0)
			if !expiresAt.After(now) {
				continue
			}
			ts := cdp.TimeSinceEpoch(expiresAt)
			set = set.WithExpires(&ts)
		}

		switch strings.ToLower(c.SameSite) {
		case "strict":
			set = set.WithSameSite(network.CookieSameSiteStrict)
		case "lax":
			set = set.WithSameSite(network.CookieSameSiteLax)
		case "none":
			set = set.WithSameSite(network.CookieSameSiteNone)
		}

		if err := set.Do(ctx); err != nil {
			slog.Warn("Failed to import cookie", "cookie_name", c.Name, "domain", c.Domain, "error", err)
			continue
		}
		imported++
	}
	return imported, nil
}

func exportCookies(ctx context.Context) (*StorageState, error) {
	cookies, err := storage.GetCookies().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return stateFromNetwork(cookies), nil
}
