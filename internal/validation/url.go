// Package validation checks untrusted strings before they reach system
// commands, the filesystem or websocket upgrades.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/conneroisu/greeter/internal/errors"
)

// ValidateURL validates URLs for browser auto-open.
// Prevents command injection via URL parameters.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "URL_INVALID", "invalid URL")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.NewValidationError("URL_SCHEME",
			fmt.Sprintf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme))
	}

	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r", " "}
	for _, char := range dangerous {
		if strings.Contains(rawURL, char) {
			return errors.NewValidationError("URL_DANGEROUS_CHAR",
				fmt.Sprintf("URL contains dangerous character: %q", char))
		}
	}

	if parsed.Host == "" {
		return errors.NewValidationError("URL_HOST", "URL must have a valid hostname")
	}

	return nil
}

// ValidateOrigin checks a websocket Origin header against allowed entries.
// An entry matches either the full origin or just its host:port.
func ValidateOrigin(origin string, allowed []string) error {
	if origin == "" {
		return errors.NewValidationError("ORIGIN_MISSING", "origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "ORIGIN_INVALID", "invalid origin format")
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return errors.NewValidationError("ORIGIN_SCHEME",
			fmt.Sprintf("invalid origin scheme %q: only http and https are allowed", originURL.Scheme))
	}

	for _, a := range allowed {
		if origin == a || originURL.Host == a {
			return nil
		}
	}

	return errors.NewValidationError("ORIGIN_DENIED", fmt.Sprintf("origin %q is not allowed", origin))
}
