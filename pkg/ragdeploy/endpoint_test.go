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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestProbeHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)

			if act, exp := r.URL.Path, "/health"; act != exp {
				t.Errorf("expected %q to be %q", act, exp)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		if err := ProbeHealth(context.Background(), srv.URL); err != nil {
			t.Fatal(err)
		}

		// One-shot: exactly one request, no retries.
		if act := atomic.LoadInt32(&hits); act != 1 {
			t.Errorf("expected 1 probe request, got %d", act)
		}
	})

	t.Run("unhealthy_status", func(t *testing.T) {
		t.Parallel()

		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := ProbeHealth(context.Background(), srv.URL)
		if !IsProbeFailedErr(err) {
			t.Fatalf("expected probe-failed error, got %v", err)
		}
		if act := atomic.LoadInt32(&hits); act != 1 {
			t.Errorf("expected 1 probe request even on failure, got %d", act)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		if err := ProbeHealth(context.Background(), srv.URL); !IsProbeFailedErr(err) {
			t.Fatalf("expected probe-failed error, got %v", err)
		}
	})

	t.Run("trailing_slash", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if act, exp := r.URL.Path, "/health"; act != exp {
				t.Errorf("expected %q to be %q", act, exp)
			}
		}))
		defer srv.Close()

		if err := ProbeHealth(context.Background(), srv.URL+"/"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("missing_url", func(t *testing.T) {
		t.Parallel()

		if err := ProbeHealth(context.Background(), ""); err == nil {
			t.Error("expected error")
		}
	})
}
