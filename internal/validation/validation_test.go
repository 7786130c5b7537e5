package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/greeter/internal/errors"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expectErr bool
	}{
		{"valid http URL", "http://localhost:8501", false},
		{"valid https URL", "https://example.com", false},
		{"valid URL with path", "https://example.com/path/to/resource", false},
		{"valid URL with query", "http://localhost:8501/?name=Alice", false},
		{"javascript scheme", "javascript:alert('xss')", true},
		{"file scheme", "file:///etc/passwd", true},
		{"command injection", "http://localhost:8501;rm -rf /", true},
		{"backtick", "http://localhost:8501/`id`", true},
		{"pipe", "http://localhost|cat", true},
		{"space", "http://localhost:8501/ x", true},
		{"newline", "http://localhost:8501/\nx", true},
		{"missing host", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateURLErrorsAreValidationErrors(t *testing.T) {
	err := ValidateURL("ftp://example.com")
	var ge *errors.GreeterError
	assert.ErrorAs(t, err, &ge)
	assert.Equal(t, errors.ErrorTypeValidation, ge.Type)
	assert.Equal(t, "URL_SCHEME", ge.Code)
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"https://app.example.com", "localhost:8501"}

	tests := []struct {
		name      string
		origin    string
		expectErr bool
	}{
		{"full origin", "https://app.example.com", false},
		{"host match", "http://localhost:8501", false},
		{"host match https", "https://localhost:8501", false},
		{"other port", "http://localhost:3000", true},
		{"other host", "https://evil.example.com", true},
		{"bad scheme", "chrome-extension://abc", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrigin(tt.origin, allowed)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCatalogPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		expectErr bool
	}{
		{"relative yaml", "catalog.yml", false},
		{"nested yaml", "config/locales/catalog.yaml", false},
		{"absolute", "/srv/greeter/catalog.YML", false},
		{"dots in name", "catalog..v2.yml", false},
		{"empty", "", true},
		{"traversal", "../secrets/catalog.yml", true},
		{"inner traversal", "config/../../catalog.yml", true},
		{"wrong extension", "catalog.json", true},
		{"no extension", "catalog", true},
		{"shell metachar", "catalog;rm.yml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCatalogPath(tt.path)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
