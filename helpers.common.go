package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
)

var (
	ErrValidation       = errors.New("at least one search field is required")
	ErrCatalogNetwork   = errors.New("catalog request failed")
	ErrBookNotFound     = errors.New("book not found")
	ErrDetailNotLoaded  = errors.New("book details not loaded")
	ErrSearchSuperseded = errors.New("search superseded by a newer one")
)

type (
	ContextKey   string
	CatalogKind  int
	invalidInput string
)

const (
	KindNetwork CatalogKind = iota
	KindNotFound
)

const (
	RequestIDPrefix         string     = "r"
	SessionIDPrefix         string     = "s"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
	SessionIDContextKey     ContextKey = "session.id"
)

func (i invalidInput) Error() string {
	return "invalid " + string(i)
}

func (k CatalogKind) String() string {
	if k == KindNotFound {
		return "not_found"
	}
	return "network"
}

// CatalogError is returned by the catalog client for any failed call.
// It matches ErrBookNotFound or ErrCatalogNetwork depending on its kind.
type CatalogError struct {
	Op         string
	Kind       CatalogKind
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: %s: unexpected status code %d", e.Op, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func (e *CatalogError) Is(target error) bool {
	switch target {
	case ErrBookNotFound:
		return e.Kind == KindNotFound
	case ErrCatalogNetwork:
		return e.Kind == KindNetwork
	}
	return false
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// DecodeSearchRequestBody reads the search form fields of a submit request.
// An empty body is accepted and yields empty fields.
func DecodeSearchRequestBody(r *http.Request, fields *SearchFields) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(fields)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", invalidInput("search request body"), err)
	}
	return nil
}

// ValidateBookID rejects identifiers which could not be a catalog id.
func ValidateBookID(id string) error {
	if id == "" || len(id) > 64 || strings.ContainsAny(id, "/?#% ") {
		return invalidInput("book id")
	}
	return nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
