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

// Package ragdeploy is the Go API for provisioning and deploying the GraphRAG
// query service: environment validation, Secret Manager provisioning, Cloud
// Build submission, and a post-deploy health probe.
package ragdeploy

import (
	"context"
	"fmt"
	"strings"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"
	"google.golang.org/api/cloudbuild/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/serviceusage/v1"
)

const (
	// Name, Version, ProjectURL, and UserAgent are used to uniquely identify
	// this package in logs and other binaries.
	Name       = "ragdeploy"
	Version    = "0.2.0"
	ProjectURL = "https://github.com/graphrag-ops/ragdeploy"
	UserAgent  = Name + "/" + Version + " (+" + ProjectURL + ")"
)

const (
	// SecretOpenAIAPIKey, SecretNeo4jPassword, and SecretPostgresPassword are
	// the fixed names of the managed secrets this tool provisions.
	SecretOpenAIAPIKey     = "openai-api-key"
	SecretNeo4jPassword    = "neo4j-password"
	SecretPostgresPassword = "postgres-password"
)

const (
	// DefaultRegion is the region the service is deployed into.
	DefaultRegion = "us-central1"

	// DefaultService is the name of the Cloud Run service the build deploys.
	DefaultService = "graphrag-api"

	// DefaultEnvFile is the environment file read from the working directory.
	DefaultEnvFile = ".env"

	// DefaultBuildConfig is the build definition read from the working
	// directory.
	DefaultBuildConfig = "cloudbuild.yaml"
)

// Client is a ragdeploy client.
type Client struct {
	secretManagerClient *secretmanager.Client
	storageClient       *storage.Client
	projectsClient      *resourcemanager.ProjectsClient
	serviceUsageService *serviceusage.Service
	cloudBuildService   *cloudbuild.Service
}

// New creates a new ragdeploy client.
func New(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	opts = append(opts, option.WithUserAgent(UserAgent))

	var c Client

	secretManagerClient, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secretManager client: %w", err)
	}
	c.secretManagerClient = secretManagerClient

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	c.storageClient = storageClient

	projectsClient, err := resourcemanager.NewProjectsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resourceManager client: %w", err)
	}
	c.projectsClient = projectsClient

	serviceUsageService, err := serviceusage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create serviceUsage client: %w", err)
	}
	c.serviceUsageService = serviceUsageService

	cloudBuildService, err := cloudbuild.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudBuild client: %w", err)
	}
	c.cloudBuildService = cloudBuildService

	return &c, nil
}

// Close releases the gRPC connections held by the client.
func (c *Client) Close() error {
	if err := c.secretManagerClient.Close(); err != nil {
		return fmt.Errorf("failed to close secretManager client: %w", err)
	}
	if err := c.storageClient.Close(); err != nil {
		return fmt.Errorf("failed to close storage client: %w", err)
	}
	if err := c.projectsClient.Close(); err != nil {
		return fmt.Errorf("failed to close resourceManager client: %w", err)
	}
	return nil
}

// RuntimeServiceAccount returns the IAM member string for the compute service
// account the deployed workload runs as. This is the grantee for the
// secret-accessor bindings.
func (c *Client) RuntimeServiceAccount(ctx context.Context, project string) (string, error) {
	resp, err := c.projectsClient.GetProject(ctx, &resourcemanagerpb.GetProjectRequest{
		Name: "projects/" + project,
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up project %s: %w", project, err)
	}

	// The resource name of a project is "projects/{project_number}".
	number := strings.TrimPrefix(resp.Name, "projects/")
	if number == "" || number == resp.Name {
		return "", fmt.Errorf("unexpected project resource name %q", resp.Name)
	}

	return fmt.Sprintf("serviceAccount:%s-compute@developer.gserviceaccount.com", number), nil
}
