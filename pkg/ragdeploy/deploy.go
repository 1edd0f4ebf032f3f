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
	"google.golang.org/api/cloudbuild/v1"
)

// DeployRequest is used as input to a full deployment.
type DeployRequest struct {
	// Project is the ID of the target project.
	Project string

	// Region is the deployment region. Defaults to DefaultRegion.
	Region string

	// Service is the Cloud Run service name the build deploys. Defaults to
	// DefaultService.
	Service string

	// Env is the loaded and validated deployment environment.
	Env *Environment

	// SourceDir is the directory staged as the build source. Defaults to the
	// working directory.
	SourceDir string

	// BuildConfig is the path to the build definition. Defaults to
	// DefaultBuildConfig.
	BuildConfig string
}

// DeployResult summarizes a deployment.
type DeployResult struct {
	// BuildID and LogURL identify the submitted build, when one was created.
	BuildID string
	LogURL  string

	// ServiceURL is the public endpoint of the deployed service.
	ServiceURL string

	// ProbeErr holds the health probe failure, if any. A failed probe after a
	// successful build is a warning, not a deployment failure.
	ProbeErr error
}

// Deploy runs the remote deployment pipeline: enable the required APIs,
// provision secrets and grants, stage the source, submit the build and wait
// for it, resolve the service endpoint, and probe it once. The pipeline is
// fail-fast; the first failing stage aborts everything after it.
//
// Precondition checks (credentials, project, environment file) are the
// caller's responsibility; see CheckCredentials, ResolveProject, and
// CheckEnvFile.
func (c *Client) Deploy(ctx context.Context, i *DeployRequest) (*DeployResult, error) {
	if i == nil {
		return nil, fmt.Errorf("missing request")
	}
	if i.Project == "" {
		return nil, fmt.Errorf("missing project")
	}
	if i.Env == nil {
		return nil, fmt.Errorf("missing environment")
	}

	region := i.Region
	if region == "" {
		region = DefaultRegion
	}
	service := i.Service
	if service == "" {
		service = DefaultService
	}
	buildConfig := i.BuildConfig
	if buildConfig == "" {
		buildConfig = DefaultBuildConfig
	}

	var (
		source *cloudbuild.StorageSource
		res    DeployResult
	)

	stages := []Stage{
		{Name: "enable-apis", Run: func(ctx context.Context) error {
			return c.EnableServices(ctx, i.Project)
		}},
		{Name: "secrets", Run: func(ctx context.Context) error {
			member, err := c.RuntimeServiceAccount(ctx, i.Project)
			if err != nil {
				return err
			}
			return c.Provision(ctx, &ProvisionRequest{
				Project: i.Project,
				Env:     i.Env,
				Members: []string{member},
			})
		}},
		{Name: "stage-source", Run: func(ctx context.Context) error {
			s, err := c.StageSource(ctx, i.Project, i.SourceDir)
			if err != nil {
				return err
			}
			source = s
			return nil
		}},
		{Name: "build", Run: func(ctx context.Context) error {
			def, err := LoadBuildConfig(buildConfig)
			if err != nil {
				return err
			}
			build, err := c.SubmitBuild(ctx, &BuildRequest{
				Project:       i.Project,
				Build:         def,
				Source:        source,
				Substitutions: Substitutions(i.Env),
			})
			if build != nil {
				res.BuildID = build.Id
				res.LogURL = build.LogUrl
			}
			return err
		}},
		{Name: "endpoint", Run: func(ctx context.Context) error {
			url, err := c.ServiceURL(ctx, i.Project, region, service)
			if err != nil {
				return err
			}
			res.ServiceURL = url
			return nil
		}},
		{Name: "probe", Run: func(ctx context.Context) error {
			if err := ProbeHealth(ctx, res.ServiceURL); err != nil {
				// The build already succeeded; a failed probe is reported but
				// never changes the outcome.
				logging.FromContext(ctx).Warn("health probe failed", "error", err)
				res.ProbeErr = err
			}
			return nil
		}},
	}

	if err := RunStages(ctx, stages); err != nil {
		return &res, err
	}

	return &res, nil
}
