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
	"fmt"

	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
)

// Stage is one named step of a deployment pipeline.
type Stage struct {
	// Name identifies the stage in logs and error messages.
	Name string

	// Run executes the stage.
	Run func(context.Context) error
}

// RunStages executes the stages in order, stopping at the first failure. The
// returned error is wrapped with the name of the failing stage. Stages are
// single-attempt; nothing is rolled back on failure.
func RunStages(ctx context.Context, stages []Stage) error {
	logger := logging.FromContext(ctx)

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Debug("stage.start", "stage", s.Name)
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		logger.Debug("stage.finish", "stage", s.Name)
	}

	return nil
}
