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
	"context"
	"testing"
)

func TestClient_Upsert_emptyValue(t *testing.T) {
	t.Parallel()

	// An empty value must return before any remote call, so a zero client is
	// safe here.
	c := &Client{}

	secret, err := c.Upsert(context.Background(), &UpsertRequest{
		Project: "example",
		Name:    SecretPostgresPassword,
	})
	if err != nil {
		t.Fatal(err)
	}
	if secret != nil {
		t.Errorf("expected no secret, got %#v", secret)
	}
}

func TestClient_Upsert_validation(t *testing.T) {
	t.Parallel()

	c := &Client{}

	cases := []struct {
		name string
		req  *UpsertRequest
	}{
		{"nil_request", nil},
		{"missing_project", &UpsertRequest{Name: "x", Plaintext: []byte("v")}},
		{"missing_name", &UpsertRequest{Project: "p", Plaintext: []byte("v")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := c.Upsert(context.Background(), tc.req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_Upsert(t *testing.T) {
	testAcc(t)

	client, ctx := testClient(t)
	project, name := testProject(t), testName(t)
	plaintext := []byte("my secret value")

	first, err := client.Upsert(ctx, &UpsertRequest{
		Project:   project,
		Name:      name,
		Plaintext: plaintext,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer testSecretCleanup(t, project, name)

	if first == nil || first.Version == "" {
		t.Fatalf("expected a versioned secret, got %#v", first)
	}

	// Upsert is idempotent: a second call with the same value succeeds and
	// yields a newer version.
	second, err := client.Upsert(ctx, &UpsertRequest{
		Project:   project,
		Name:      name,
		Plaintext: plaintext,
	})
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || second.Version == first.Version {
		t.Errorf("expected a new version after %q, got %#v", first.Version, second)
	}
}

func TestClient_Grant(t *testing.T) {
	testAcc(t)

	client, ctx := testClient(t)
	project, name := testProject(t), testName(t)

	if _, err := client.Upsert(ctx, &UpsertRequest{
		Project:   project,
		Name:      name,
		Plaintext: []byte("grant me"),
	}); err != nil {
		t.Fatal(err)
	}
	defer testSecretCleanup(t, project, name)

	member, err := client.RuntimeServiceAccount(ctx, project)
	if err != nil {
		t.Fatal(err)
	}

	req := &GrantRequest{
		Project: project,
		Name:    name,
		Members: []string{member},
	}

	if err := client.Grant(ctx, req); err != nil {
		t.Fatal(err)
	}

	// Re-granting is a no-op.
	if err := client.Grant(ctx, req); err != nil {
		t.Fatal(err)
	}
}

func TestClient_Grant_noMembers(t *testing.T) {
	t.Parallel()

	c := &Client{}

	if err := c.Grant(context.Background(), &GrantRequest{
		Project: "p",
		Name:    "s",
	}); err != nil {
		t.Fatal(err)
	}
}

func TestClient_Provision_validation(t *testing.T) {
	t.Parallel()

	c := &Client{}

	t.Run("nil_request", func(t *testing.T) {
		t.Parallel()

		if err := c.Provision(context.Background(), nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing_environment", func(t *testing.T) {
		t.Parallel()

		if err := c.Provision(context.Background(), &ProvisionRequest{Project: "p"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no_api_key", func(t *testing.T) {
		t.Parallel()

		err := c.Provision(context.Background(), &ProvisionRequest{
			Project: "p",
			Env:     NewEnvironment(map[string]string{KeyNeo4jPassword: "x"}),
		})
		if !IsNoCandidateErr(err) {
			t.Fatalf("expected no-candidate error, got %v", err)
		}
	})
}
