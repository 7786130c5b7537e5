package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/greeter/internal/errors"
)

var catalogExtensions = []string{".yml", ".yaml"}

// ValidateCatalogPath accepts a YAML file path without traversal segments or
// shell metacharacters.
func ValidateCatalogPath(path string) error {
	if path == "" {
		return errors.NewValidationError("PATH_EMPTY", "path cannot be empty")
	}

	for _, segment := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if segment == ".." {
			return errors.NewValidationError("PATH_TRAVERSAL", fmt.Sprintf("path traversal detected: %s", path))
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\x00"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return errors.NewValidationError("PATH_DANGEROUS_CHAR",
				fmt.Sprintf("path contains dangerous character: %q", char))
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range catalogExtensions {
		if ext == allowed {
			return nil
		}
	}
	return errors.NewValidationError("PATH_EXTENSION",
		fmt.Sprintf("catalog must be a YAML file, got extension %q", ext))
}
