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
	"sort"

	"cloud.google.com/go/iam"
	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
)

// GrantRequest is used as input to a grant secret request.
type GrantRequest struct {
	// Project is the ID of the project that holds the secret.
	Project string

	// Name is the name of the secret.
	Name string

	// Members is the list of IAM members to grant the secret-accessor role,
	// for example "serviceAccount:1234-compute@developer.gserviceaccount.com".
	Members []string
}

// Grant adds the secret-accessor role on the secret for the given members.
// Granting is idempotent: members already holding the role are unchanged and
// re-invocation is a safe no-op.
func (c *Client) Grant(ctx context.Context, i *GrantRequest) error {
	if i == nil {
		return fmt.Errorf("missing request")
	}

	project := i.Project
	if project == "" {
		return fmt.Errorf("missing project")
	}

	name := i.Name
	if name == "" {
		return fmt.Errorf("missing secret name")
	}

	members := i.Members
	if len(members) == 0 {
		return nil
	}
	sort.Strings(members)

	logger := logging.FromContext(ctx).With("project", project, "secret", name, "members", members)

	logger.Debug("grant.start")
	defer logger.Debug("grant.finish")

	handle := c.secretManagerIAM(project, name)
	if err := updateIAMPolicy(ctx, handle, func(p *iam.Policy) *iam.Policy {
		for _, m := range members {
			p.Add(m, iamSecretAccessor)
		}
		return p
	}); err != nil {
		return fmt.Errorf("failed to update IAM policy for %s: %w", name, err)
	}

	return nil
}
