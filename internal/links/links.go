// Package links opens external links from notes in the system browser.
package links

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pkg/browser"
)

// ErrScheme is returned for URLs that are not http, https or mailto.
var ErrScheme = errors.New("links: unsupported scheme")

// Opener launches URLs. The zero value uses the system browser.
type Opener struct {
	open   func(string) error
	logger *slog.Logger
}

// NewOpener returns an Opener using the system browser.
func NewOpener(logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{open: browser.OpenURL, logger: logger}
}

// Validate parses raw and checks that it may be opened.
func Validate(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("links: parse %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("links: %q has no host", raw)
		}
	case "mailto":
		if u.Opaque == "" {
			return "", fmt.Errorf("links: %q has no address", raw)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}
	return u.String(), nil
}

// Open validates raw and hands it to the browser in the background. Launch
// failures are logged, not returned.
func (o *Opener) Open(raw string) error {
	target, err := Validate(raw)
	if err != nil {
		return err
	}
	open := o.open
	if open == nil {
		open = browser.OpenURL
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		if err := open(target); err != nil {
			logger.Warn("open link", "url", target, "error", err)
		}
	}()
	return nil
}
