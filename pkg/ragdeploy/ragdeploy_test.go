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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

func testClient(tb testing.TB) (*Client, context.Context) {
	tb.Helper()

	ctx := context.Background()
	client, err := New(ctx)
	if err != nil {
		tb.Fatal(err)
	}
	return client, ctx
}

func testProject(tb testing.TB) string {
	tb.Helper()

	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		tb.Fatal("missing GOOGLE_CLOUD_PROJECT")
	}
	return project
}

func testName(tb testing.TB) string {
	tb.Helper()

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		tb.Fatal(err)
	}
	return "ragdeploy-test-" + hex.EncodeToString(b)
}

func testSecretCleanup(tb testing.TB, project, name string) {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := New(context.Background())
	if err != nil {
		tb.Fatal(err)
	}

	if err := client.secretManagerClient.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s", project, name),
	}); err != nil {
		tb.Fatal(err)
	}
}

func testAcc(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping acceptance tests (-short)")
	}

	t.Parallel()
}
