// Package pathutil provides helpers for slash-separated archive paths.
package pathutil

import "strings"

// Base returns the last element of a slash-separated path, ignoring a
// trailing slash. If path is empty or ".", it returns ".".
func Base(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == "." {
		return "."
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Dir returns all but the last element of a slash-separated path, or ""
// when the path has a single element.
func Dir(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}
