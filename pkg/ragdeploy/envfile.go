// Copyright 2024 The Ragdeploy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ragdeploy

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Environment variable names recognized in the environment file.
const (
	KeyNeo4jURI      = "NEO4J_URI"
	KeyNeo4jDatabase = "NEO4J_DATABASE"
	KeyNeo4jUsername = "NEO4J_USERNAME"
	KeyNeo4jPassword = "NEO4J_PASSWORD"

	KeyOpenAIAPIKey   = "OPENAI_API_KEY"
	KeyGraphRAGAPIKey = "GRAPHRAG_API_KEY"

	KeyPostgresHost     = "POSTGRES_HOST"
	KeyPostgresDatabase = "POSTGRES_DATABASE"
	KeyPostgresUser     = "POSTGRES_USER"
	KeyPostgresPassword = "POSTGRES_PASSWORD"
	KeyPostgresPort     = "POSTGRES_PORT"
)

// DefaultPostgresPort is applied when a Postgres host is configured but no
// port is given.
const DefaultPostgresPort = "5432"

// requiredKeys lists the keys that must be present and non-empty, in the
// order their absence is reported. The API key is validated separately since
// it is accepted under either of two names.
var requiredKeys = []string{
	KeyNeo4jURI,
	KeyNeo4jDatabase,
	KeyNeo4jUsername,
	KeyNeo4jPassword,
}

// Environment is the immutable set of variables loaded from an environment
// file. It is constructed once by ParseEnvFile and passed to each deployment
// stage; nothing is exported into the process environment.
type Environment struct {
	vars map[string]string
}

// NewEnvironment creates an Environment from the given variable map. Useful
// for tests and callers that already hold the values.
func NewEnvironment(vars map[string]string) *Environment {
	m := make(map[string]string, len(vars))
	for k, v := range vars {
		m[k] = v
	}
	return &Environment{vars: m}
}

// ParseEnvFile reads a KEY=value environment file. Blank lines and lines
// whose first non-space character is '#' are skipped. A trailing inline
// comment is stripped from the value at the first '#'; there is no
// quote-aware handling of embedded '#' characters. Later bindings for the
// same key overwrite earlier ones.
func ParseEnvFile(path string) (*Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open environment file: %w", err)
	}
	defer f.Close()

	vars := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		// Strip a trailing inline comment. Embedded '#' inside quoted values
		// is not supported.
		if i := strings.Index(value, "#"); i >= 0 {
			value = value[:i]
		}

		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}

		vars[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	return &Environment{vars: vars}, nil
}

// Get returns the value bound to the given key, or the empty string.
func (e *Environment) Get(key string) string {
	return e.vars[key]
}

// Resolve returns the first non-empty value among the candidate keys, in
// order. If no candidate holds a value, it returns an error wrapping
// ErrNoCandidate that names the candidates.
func (e *Environment) Resolve(keys ...string) (string, error) {
	for _, k := range keys {
		if v := e.vars[k]; v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoCandidate, strings.Join(keys, ", "))
}

// APIKey resolves the effective API key, preferring OPENAI_API_KEY over
// GRAPHRAG_API_KEY.
func (e *Environment) APIKey() (string, error) {
	return e.Resolve(KeyOpenAIAPIKey, KeyGraphRAGAPIKey)
}

// Validate asserts that every required key is present and non-empty and that
// an API key is set under one of its accepted names. The first missing key
// halts validation; callers must not make any remote call on error.
func (e *Environment) Validate() error {
	for _, k := range requiredKeys {
		if e.vars[k] == "" {
			return fmt.Errorf("%w: %s", ErrMissingKey, k)
		}
	}

	if _, err := e.APIKey(); err != nil {
		return fmt.Errorf("%w: %s (or %s)", ErrMissingKey, KeyOpenAIAPIKey, KeyGraphRAGAPIKey)
	}

	return nil
}

// HasPostgres reports whether the optional Postgres connection is configured.
// The host is the deciding key.
func (e *Environment) HasPostgres() bool {
	return e.vars[KeyPostgresHost] != ""
}

// PostgresPort returns the configured Postgres port, defaulting to 5432.
func (e *Environment) PostgresPort() string {
	if v := e.vars[KeyPostgresPort]; v != "" {
		return v
	}
	return DefaultPostgresPort
}
