package schema

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// Transform post-processes a parsed value. Name identifies it in YAML declarations and errors.
type Transform struct {
	Name string
	Fn   func(any) (any, error)
}

var (
	transformsMu sync.RWMutex
	transforms   = map[string]Transform{}
)

func init() {
	RegisterTransform("upper", stringTransform(strings.ToUpper))
	RegisterTransform("lower", stringTransform(strings.ToLower))
	RegisterTransform("trim", stringTransform(strings.TrimSpace))
	RegisterTransform("time", parseTime)
}

// RegisterTransform makes fn available under name. Registering a name twice replaces it.
func RegisterTransform(name string, fn func(any) (any, error)) {
	transformsMu.Lock()
	defer transformsMu.Unlock()
	transforms[name] = Transform{Name: name, Fn: fn}
}

// LookupTransform returns the transform registered under name.
func LookupTransform(name string) (Transform, error) {
	transformsMu.RLock()
	defer transformsMu.RUnlock()
	t, ok := transforms[name]
	if !ok {
		return Transform{}, fmt.Errorf("%w: %q", constants.ErrUnknownTransform, name)
	}
	return t, nil
}

// MustTransform is LookupTransform for names known at compile time.
func MustTransform(name string) Transform {
	t, err := LookupTransform(name)
	if err != nil {
		panic(err)
	}
	return t
}

func stringTransform(fn func(string) string) func(any) (any, error) {
	return func(v any) (any, error) {
		switch s := v.(type) {
		case nil:
			return nil, nil
		case string:
			return fn(s), nil
		default:
			return nil, fmt.Errorf("expected string, got %T", v)
		}
	}
}

// parseTime turns RFC 3339 date-times and plain dates into time.Time. Null stays null.
func parseTime(v any) (any, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return s, nil
	case string:
		if s == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("cannot read %q as a time", s)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("expected string, got %T", v)
	}
}
