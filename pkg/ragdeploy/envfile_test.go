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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testWriteEnvFile(tb testing.TB, contents string) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		tb.Fatal(err)
	}
	return path
}

func TestParseEnvFile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
		key      string
		exp      string
	}{
		{
			"simple",
			"NEO4J_URI=bolt://db:7687\n",
			"NEO4J_URI",
			"bolt://db:7687",
		},
		{
			"surrounding_whitespace",
			"  NEO4J_URI = bolt://db:7687  \n",
			"NEO4J_URI",
			"bolt://db:7687",
		},
		{
			"full_line_comment",
			"# NEO4J_URI=commented\nNEO4J_URI=real\n",
			"NEO4J_URI",
			"real",
		},
		{
			"indented_comment",
			"   # NEO4J_URI=commented\n",
			"NEO4J_URI",
			"",
		},
		{
			"inline_comment",
			"NEO4J_URI=bolt://db:7687 # production\n",
			"NEO4J_URI",
			"bolt://db:7687",
		},
		{
			// Embedded '#' is not quote-aware. This pins the documented
			// limitation.
			"hash_in_quoted_value",
			`NEO4J_PASSWORD="pa#ss"` + "\n",
			"NEO4J_PASSWORD",
			`"pa`,
		},
		{
			"no_equals_skipped",
			"JUNK LINE\nNEO4J_URI=x\n",
			"NEO4J_URI",
			"x",
		},
		{
			"later_binding_wins",
			"NEO4J_URI=first\nNEO4J_URI=second\n",
			"NEO4J_URI",
			"second",
		},
		{
			"empty_value",
			"NEO4J_URI=\n",
			"NEO4J_URI",
			"",
		},
		{
			"value_with_equals",
			"OPENAI_API_KEY=sk-abc==\n",
			"OPENAI_API_KEY",
			"sk-abc==",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env, err := ParseEnvFile(testWriteEnvFile(t, tc.contents))
			if err != nil {
				t.Fatal(err)
			}

			if act, exp := env.Get(tc.key), tc.exp; act != exp {
				t.Errorf("expected %q to be %q", act, exp)
			}
		})
	}

	t.Run("missing_file", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseEnvFile(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error")
		}
	})
}

func testFullEnv() map[string]string {
	return map[string]string{
		KeyNeo4jURI:      "neo4j+s://db.example.com",
		KeyNeo4jDatabase: "neo4j",
		KeyNeo4jUsername: "neo4j",
		KeyNeo4jPassword: "s3cret",
		KeyOpenAIAPIKey:  "sk-test",
	}
}

func TestEnvironment_Validate(t *testing.T) {
	t.Parallel()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		if err := NewEnvironment(testFullEnv()).Validate(); err != nil {
			t.Fatal(err)
		}
	})

	for _, key := range []string{KeyNeo4jURI, KeyNeo4jDatabase, KeyNeo4jUsername, KeyNeo4jPassword} {
		t.Run("missing_"+key, func(t *testing.T) {
			t.Parallel()

			vars := testFullEnv()
			delete(vars, key)

			err := NewEnvironment(vars).Validate()
			if !IsMissingKeyErr(err) {
				t.Fatalf("expected missing-key error, got %v", err)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("expected %q to name %q", err, key)
			}
		})
	}

	t.Run("missing_api_key", func(t *testing.T) {
		t.Parallel()

		vars := testFullEnv()
		delete(vars, KeyOpenAIAPIKey)

		err := NewEnvironment(vars).Validate()
		if !IsMissingKeyErr(err) {
			t.Fatalf("expected missing-key error, got %v", err)
		}
	})

	t.Run("fallback_api_key_accepted", func(t *testing.T) {
		t.Parallel()

		vars := testFullEnv()
		delete(vars, KeyOpenAIAPIKey)
		vars[KeyGraphRAGAPIKey] = "gr-test"

		if err := NewEnvironment(vars).Validate(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestEnvironment_APIKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		vars   map[string]string
		exp    string
		expErr bool
	}{
		{
			"primary_only",
			map[string]string{KeyOpenAIAPIKey: "sk-a"},
			"sk-a",
			false,
		},
		{
			"fallback_only",
			map[string]string{KeyGraphRAGAPIKey: "gr-b"},
			"gr-b",
			false,
		},
		{
			"both_prefers_primary",
			map[string]string{KeyOpenAIAPIKey: "sk-a", KeyGraphRAGAPIKey: "gr-b"},
			"sk-a",
			false,
		},
		{
			"primary_empty_falls_back",
			map[string]string{KeyOpenAIAPIKey: "", KeyGraphRAGAPIKey: "gr-b"},
			"gr-b",
			false,
		},
		{
			"neither",
			map[string]string{},
			"",
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			key, err := NewEnvironment(tc.vars).APIKey()
			if tc.expErr {
				if !IsNoCandidateErr(err) {
					t.Fatalf("expected no-candidate error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if key != tc.exp {
				t.Errorf("expected %q to be %q", key, tc.exp)
			}
		})
	}
}

func TestEnvironment_PostgresPort(t *testing.T) {
	t.Parallel()

	t.Run("default", func(t *testing.T) {
		t.Parallel()

		env := NewEnvironment(map[string]string{KeyPostgresHost: "db.example.com"})
		if act, exp := env.PostgresPort(), DefaultPostgresPort; act != exp {
			t.Errorf("expected %q to be %q", act, exp)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()

		env := NewEnvironment(map[string]string{KeyPostgresPort: "5433"})
		if act, exp := env.PostgresPort(), "5433"; act != exp {
			t.Errorf("expected %q to be %q", act, exp)
		}
	})
}
