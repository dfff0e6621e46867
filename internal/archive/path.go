package archive

import (
	"path"
	"path/filepath"
	"strings"
)

// validatePath returns the cleaned, slash-separated form of name if it stays
// inside the extraction root once joined to it.
func validatePath(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, "\\\x00") {
		return "", false
	}
	if strings.HasPrefix(name, "/") || (len(name) >= 2 && name[1] == ':') {
		return "", false
	}
	trimmed := strings.TrimSuffix(name, "/")
	if trimmed == "" {
		return "", false
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", false
	}
	return cleaned, true
}
