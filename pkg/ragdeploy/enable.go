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
	"time"

	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/serviceusage/v1"
)

// requiredServices are the API surfaces the deployment depends on. Enabling
// an already-enabled service is a no-op, so the call is safe to repeat.
var requiredServices = []string{
	"cloudbuild.googleapis.com",
	"run.googleapis.com",
	"secretmanager.googleapis.com",
}

// EnableServices enables the required APIs on the project and waits for the
// enablement operation to complete.
func (c *Client) EnableServices(ctx context.Context, project string) error {
	if project == "" {
		return fmt.Errorf("missing project")
	}

	logger := logging.FromContext(ctx).With("project", project, "services", requiredServices)

	logger.Debug("enable.start")
	defer logger.Debug("enable.finish")

	op, err := c.serviceUsageService.Services.
		BatchEnable("projects/"+project, &serviceusage.BatchEnableServicesRequest{
			ServiceIds: requiredServices,
		}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to enable services: %w", err)
	}

	if op.Done {
		if op.Error != nil {
			return fmt.Errorf("failed to enable services: %s", op.Error.Message)
		}
		return nil
	}

	b := retry.WithMaxDuration(5*time.Minute, retry.NewConstant(2*time.Second))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		cur, err := c.serviceUsageService.Operations.Get(op.Name).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to poll enablement operation: %w", err)
		}
		if !cur.Done {
			return retry.RetryableError(fmt.Errorf("enablement still running"))
		}
		if cur.Error != nil {
			return fmt.Errorf("failed to enable services: %s", cur.Error.Message)
		}
		return nil
	})
}
