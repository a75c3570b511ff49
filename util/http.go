package util

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const BoardPath = "/board"
const ReadPath = "/read"
const RelatedPath = "/read/related"
const MediaPath = "/media"
const TopGalleriesPath = "/galleries/top"
const SearchGalleriesPath = "/galleries/search"
const MetricsPath = "/metrics"

// EnsureParam returns the trimmed query parameter, panicking with a 400 when it is missing or blank
func EnsureParam(r *http.Request, name string) string {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		panic(HttpError{
			Status: http.StatusBadRequest,
			Inner:  fmt.Errorf("missing query parameter: %s", name),
		})
	}
	return value
}

func OptionalParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// IntParam falls back to defaultValue when the parameter is missing or not a number
func IntParam(r *http.Request, name string, defaultValue int) int {
	value, err := strconv.Atoi(OptionalParam(r, name))
	if err != nil {
		return defaultValue
	}
	return value
}

func Int64Param(r *http.Request, name string) int64 {
	value, err := strconv.ParseInt(OptionalParam(r, name), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// BoolParam accepts 1/true/yes/on
func BoolParam(r *http.Request, name string) bool {
	switch strings.ToLower(OptionalParam(r, name)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// UserIp prefers the first hop of X-Forwarded-For
func UserIp(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
