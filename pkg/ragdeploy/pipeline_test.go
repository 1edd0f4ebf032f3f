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
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestRunStages(t *testing.T) {
	t.Parallel()

	t.Run("runs_in_order", func(t *testing.T) {
		t.Parallel()

		var ran []string
		record := func(name string) Stage {
			return Stage{Name: name, Run: func(context.Context) error {
				ran = append(ran, name)
				return nil
			}}
		}

		err := RunStages(context.Background(), []Stage{
			record("one"), record("two"), record("three"),
		})
		if err != nil {
			t.Fatal(err)
		}

		if exp := []string{"one", "two", "three"}; !reflect.DeepEqual(ran, exp) {
			t.Errorf("expected %v to be %v", ran, exp)
		}
	})

	t.Run("short_circuits_on_failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var afterRan bool

		err := RunStages(context.Background(), []Stage{
			{Name: "ok", Run: func(context.Context) error { return nil }},
			{Name: "fails", Run: func(context.Context) error { return boom }},
			{Name: "after", Run: func(context.Context) error {
				afterRan = true
				return nil
			}},
		})

		if !errors.Is(err, boom) {
			t.Fatalf("expected %v to wrap %v", err, boom)
		}
		if !strings.Contains(err.Error(), "fails") {
			t.Errorf("expected %q to name the failing stage", err)
		}
		if afterRan {
			t.Error("stage after the failure must not run")
		}
	})

	t.Run("canceled_context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran bool
		err := RunStages(ctx, []Stage{
			{Name: "never", Run: func(context.Context) error {
				ran = true
				return nil
			}},
		})

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if ran {
			t.Error("stage must not run after cancellation")
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		if err := RunStages(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
	})
}
