// Package env reads configuration from .env files and the
// process environment.
package env

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Loader defines the interface for environment variable access.
type Loader interface {
	// Load reads variables from a .env file.
	Load(path string) error
	// Get retrieves a variable value.
	Get(key string) string
	// GetRequired retrieves a variable or returns an error.
	GetRequired(key string) (string, error)
	// GetWithDefault retrieves a variable with a fallback.
	GetWithDefault(key, defaultValue string) string
	// GetBool parses a variable as a boolean with a fallback.
	GetBool(key string, defaultValue bool) bool
	// All returns all variables loaded from files.
	All() map[string]string
}

// DefaultLoader implements Loader. Values from the process
// environment take precedence over values loaded from files.
type DefaultLoader struct {
	mu     sync.RWMutex
	vars   map[string]string
	lookup func(string) (string, bool)
}

// NewLoader creates a DefaultLoader that reads the process
// environment.
func NewLoader() *DefaultLoader {
	return &DefaultLoader{
		vars:   make(map[string]string),
		lookup: os.LookupEnv,
	}
}

// Load parses KEY=VALUE lines. Blank lines and lines starting
// with '#' are skipped; an optional "export " prefix and
// surrounding quotes are removed.
func (l *DefaultLoader) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", path, err)
	}
	defer file.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 &&
			(value[0] == '"' || value[0] == '\'') &&
			value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		l.vars[strings.TrimSpace(key)] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	return nil
}

func (l *DefaultLoader) Get(key string) string {
	if v, ok := l.lookup(key); ok && v != "" {
		return v
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.vars[key]
}

func (l *DefaultLoader) GetRequired(key string) (string, error) {
	v := l.Get(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return v, nil
}

func (l *DefaultLoader) GetWithDefault(key, defaultValue string) string {
	if v := l.Get(key); v != "" {
		return v
	}
	return defaultValue
}

func (l *DefaultLoader) GetBool(key string, defaultValue bool) bool {
	v := l.Get(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func (l *DefaultLoader) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		out[k] = v
	}
	return out
}
