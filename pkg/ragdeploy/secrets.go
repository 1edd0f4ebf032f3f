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
	"path"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
	grpccodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Secret represents a provisioned secret version.
type Secret struct {
	// Name of the secret.
	Name string

	// Version is the version number of the latest payload.
	Version string

	// UpdatedAt indicates when the version was created.
	UpdatedAt time.Time
}

// UpsertRequest is used as input to upsert a secret.
type UpsertRequest struct {
	// Project is the ID of the project that holds the secret.
	Project string

	// Name is the name of the secret.
	Name string

	// Plaintext is the payload to store. If empty, the upsert is skipped.
	Plaintext []byte
}

// Upsert creates the named secret if it does not exist and appends the
// plaintext as a new version. If the secret already exists, only a new
// version is added. The operation is idempotent: repeating it with the same
// plaintext leaves the latest version equal to that plaintext.
//
// If the plaintext is empty, the secret store is never contacted; a nil
// Secret is returned with no error.
func (c *Client) Upsert(ctx context.Context, i *UpsertRequest) (*Secret, error) {
	if i == nil {
		return nil, fmt.Errorf("missing request")
	}

	project := i.Project
	if project == "" {
		return nil, fmt.Errorf("missing project")
	}

	name := i.Name
	if name == "" {
		return nil, fmt.Errorf("missing secret name")
	}

	logger := logging.FromContext(ctx).With("project", project, "secret", name)

	if len(i.Plaintext) == 0 {
		logger.Warn("no value supplied, leaving secret untouched")
		return nil, nil
	}

	logger.Debug("upsert.start")
	defer logger.Debug("upsert.finish")

	_, err := c.secretManagerClient.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", project),
		SecretId: name,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	switch {
	case err == nil:
		logger.Debug("created secret")
	case isAlreadyExists(err):
		logger.Debug("secret exists, adding version")
	default:
		return nil, fmt.Errorf("failed to create secret: %w", err)
	}

	versionResp, err := c.secretManagerClient.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent: fmt.Sprintf("projects/%s/secrets/%s", project, name),
		Payload: &secretmanagerpb.SecretPayload{
			Data: i.Plaintext,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add secret version: %w", err)
	}

	return &Secret{
		Name:      name,
		Version:   path.Base(versionResp.Name),
		UpdatedAt: timestampToTime(versionResp.CreateTime),
	}, nil
}

// ProvisionRequest is used as input to provision all deployment secrets.
type ProvisionRequest struct {
	// Project is the ID of the project that holds the secrets.
	Project string

	// Env is the loaded deployment environment.
	Env *Environment

	// Members is the list of IAM members granted accessor on each secret that
	// was written.
	Members []string
}

// Provision upserts the fixed set of deployment secrets and grants the given
// members accessor permission on each secret that was actually written. The
// API key and graph database password are always processed; the Postgres
// password only participates when a value is present. Processing stops at the
// first error.
func (c *Client) Provision(ctx context.Context, i *ProvisionRequest) error {
	if i == nil {
		return fmt.Errorf("missing request")
	}
	if i.Env == nil {
		return fmt.Errorf("missing environment")
	}

	apiKey, err := i.Env.APIKey()
	if err != nil {
		return err
	}

	entries := []struct {
		secret string
		value  string
	}{
		{SecretOpenAIAPIKey, apiKey},
		{SecretNeo4jPassword, i.Env.Get(KeyNeo4jPassword)},
		{SecretPostgresPassword, i.Env.Get(KeyPostgresPassword)},
	}

	logger := logging.FromContext(ctx)

	for _, e := range entries {
		secret, err := c.Upsert(ctx, &UpsertRequest{
			Project:   i.Project,
			Name:      e.secret,
			Plaintext: []byte(e.value),
		})
		if err != nil {
			return fmt.Errorf("failed to provision %s: %w", e.secret, err)
		}
		if secret == nil {
			// No value supplied, no secret written, no grant issued.
			continue
		}

		logger.Info("provisioned secret", "secret", secret.Name, "version", secret.Version)

		if err := c.Grant(ctx, &GrantRequest{
			Project: i.Project,
			Name:    e.secret,
			Members: i.Members,
		}); err != nil {
			return fmt.Errorf("failed to grant access to %s: %w", e.secret, err)
		}
	}

	return nil
}

// isAlreadyExists reports whether the error is a gRPC AlreadyExists status.
func isAlreadyExists(err error) bool {
	terr, ok := grpcstatus.FromError(err)
	return ok && terr.Code() == grpccodes.AlreadyExists
}

// timestampToTime converts the proto timestamp into a time, returning the
// zero time if the timestamp is invalid.
func timestampToTime(ts *timestamppb.Timestamp) time.Time {
	if err := ts.CheckValid(); err != nil {
		return time.Time{}
	}
	return ts.AsTime()
}
