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

	"cloud.google.com/go/iam"
	"cloud.google.com/go/iam/apiv1/iampb"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	grpccodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	iamSecretAccessor = iam.RoleName("roles/secretmanager.secretAccessor")
)

// secretManagerIAM returns an IAM handle to the given secret since one does
// not exist in the secrets library.
func (c *Client) secretManagerIAM(project, name string) *iam.Handle {
	return iam.InternalNewHandleClient(&secretManagerIAMClient{
		raw: c.secretManagerClient,
	}, fmt.Sprintf("projects/%s/secrets/%s", project, name))
}

// secretManagerIAMClient implements the iam.client interface.
type secretManagerIAMClient struct {
	raw *secretmanager.Client
}

func (c *secretManagerIAMClient) Get(ctx context.Context, resource string) (*iampb.Policy, error) {
	return c.GetWithVersion(ctx, resource, 1)
}

func (c *secretManagerIAMClient) GetWithVersion(ctx context.Context, resource string, version int32) (*iampb.Policy, error) {
	return c.raw.GetIamPolicy(ctx, &iampb.GetIamPolicyRequest{
		Resource: resource,
		Options: &iampb.GetPolicyOptions{
			RequestedPolicyVersion: version,
		},
	})
}

func (c *secretManagerIAMClient) Set(ctx context.Context, resource string, p *iampb.Policy) error {
	_, err := c.raw.SetIamPolicy(ctx, &iampb.SetIamPolicyRequest{
		Resource: resource,
		Policy:   p,
	})
	return err
}

func (c *secretManagerIAMClient) Test(ctx context.Context, resource string, perms []string) ([]string, error) {
	list, err := c.raw.TestIamPermissions(ctx, &iampb.TestIamPermissionsRequest{
		Resource:    resource,
		Permissions: perms,
	})
	if err != nil {
		return nil, err
	}
	return list.Permissions, nil
}

// updateIAMPolicy gets the existing IAM policy, applies the modifications
// from f, and attempts to set the new policy, retrying and accounting for
// transient errors.
func updateIAMPolicy(ctx context.Context, h *iam.Handle, f func(*iam.Policy) *iam.Policy) error {
	return iamRetry(ctx, func(ctx context.Context) error {
		existingPolicy, err := h.Policy(ctx)
		if err != nil {
			return err
		}

		newPolicy := f(existingPolicy)

		if err := h.SetPolicy(ctx, newPolicy); err != nil {
			return err
		}
		return nil
	})
}

// iamRetry is a helper function that executes the given function with
// retries, handling IAM-specific retry conditions. This covers the
// read-modify-write race during policy propagation; it does not re-run a
// failed deployment step.
func iamRetry(ctx context.Context, f retry.RetryFunc) error {
	b := retry.WithMaxRetries(5, retry.NewFibonacci(250*time.Millisecond))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := f(ctx)
		if err == nil {
			return nil
		}

		// IAM gRPC returns 10 on conflicts
		if terr, ok := grpcstatus.FromError(err); ok && terr.Code() == grpccodes.Aborted {
			return retry.RetryableError(err)
		}

		// IAM returns 412 while propagating, also retry on server errors
		if terr, ok := err.(*googleapi.Error); ok && (terr.Code == 412 || terr.Code >= 500) {
			return retry.RetryableError(err)
		}

		return err
	})
}
