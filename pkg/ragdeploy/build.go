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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/cloudbuild/v1"
	"gopkg.in/yaml.v3"
)

// Substitutions returns the non-secret build substitutions derived from the
// environment. The graph database connection parameters are always present;
// the Postgres parameters participate only when a Postgres host is
// configured. Passwords and API keys are never included.
func Substitutions(env *Environment) map[string]string {
	s := map[string]string{
		"_NEO4J_URI":      env.Get(KeyNeo4jURI),
		"_NEO4J_DATABASE": env.Get(KeyNeo4jDatabase),
		"_NEO4J_USERNAME": env.Get(KeyNeo4jUsername),
	}

	if env.HasPostgres() {
		s["_POSTGRES_HOST"] = env.Get(KeyPostgresHost)
		s["_POSTGRES_DATABASE"] = env.Get(KeyPostgresDatabase)
		s["_POSTGRES_USER"] = env.Get(KeyPostgresUser)
		s["_POSTGRES_PORT"] = env.PostgresPort()
	}

	return s
}

// FormatSubstitutions renders the substitutions as a deterministic
// comma-joined _KEY=value list, the form the build tooling conventionally
// logs and accepts.
func FormatSubstitutions(subs map[string]string) string {
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+subs[k])
	}
	return strings.Join(pairs, ",")
}

// LoadBuildConfig reads a cloudbuild.yaml build definition. The YAML document
// is converted through its JSON form into the API build type, which is the
// same translation the provider's own tooling performs client-side.
func LoadBuildConfig(path string) (*cloudbuild.Build, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse build config: %w", err)
	}

	j, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert build config: %w", err)
	}

	var b cloudbuild.Build
	if err := json.Unmarshal(j, &b); err != nil {
		return nil, fmt.Errorf("failed to convert build config: %w", err)
	}

	if len(b.Steps) == 0 {
		return nil, fmt.Errorf("build config %s has no steps", path)
	}

	return &b, nil
}

// BuildRequest is used as input to submit a build.
type BuildRequest struct {
	// Project is the ID of the project the build runs in.
	Project string

	// Build is the build definition, typically from LoadBuildConfig.
	Build *cloudbuild.Build

	// Source is the staged source archive, from StageSource.
	Source *cloudbuild.StorageSource

	// Substitutions are the non-secret substitution values.
	Substitutions map[string]string
}

// SubmitBuild submits the build and blocks until it reaches a terminal
// state. A build that terminates in any state other than success returns an
// error wrapping ErrBuildFailed; the returned build (when non-nil) carries
// the identifier and log URL for diagnostics.
func (c *Client) SubmitBuild(ctx context.Context, i *BuildRequest) (*cloudbuild.Build, error) {
	if i == nil {
		return nil, fmt.Errorf("missing request")
	}
	if i.Project == "" {
		return nil, fmt.Errorf("missing project")
	}
	if i.Build == nil {
		return nil, fmt.Errorf("missing build definition")
	}

	build := *i.Build
	build.Substitutions = i.Substitutions
	if i.Source != nil {
		build.Source = &cloudbuild.Source{StorageSource: i.Source}
	}

	logger := logging.FromContext(ctx).With("project", i.Project)

	logger.Debug("build.submit", "substitutions", FormatSubstitutions(i.Substitutions))

	op, err := c.cloudBuildService.Projects.Builds.
		Create(i.Project, &build).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to submit build: %w", err)
	}

	var meta cloudbuild.BuildOperationMetadata
	if err := json.Unmarshal(op.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode build operation metadata: %w", err)
	}
	if meta.Build == nil || meta.Build.Id == "" {
		return nil, fmt.Errorf("build operation carried no build identifier")
	}

	logger.Info("build submitted", "build", meta.Build.Id, "logs", meta.Build.LogUrl)

	return c.waitForBuild(ctx, i.Project, meta.Build.Id)
}

// waitForBuild polls the build until it reaches a terminal status.
func (c *Client) waitForBuild(ctx context.Context, project, id string) (*cloudbuild.Build, error) {
	var build *cloudbuild.Build

	b := retry.WithMaxDuration(30*time.Minute, retry.NewConstant(5*time.Second))
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		cur, err := c.cloudBuildService.Projects.Builds.Get(project, id).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to poll build: %w", err)
		}

		switch cur.Status {
		case "QUEUED", "PENDING", "WORKING":
			return retry.RetryableError(fmt.Errorf("build %s still %s", id, strings.ToLower(cur.Status)))
		default:
			build = cur
			return nil
		}
	}); err != nil {
		return build, err
	}

	if build.Status != "SUCCESS" {
		return build, fmt.Errorf("%w: build %s finished %s (logs: %s)",
			ErrBuildFailed, build.Id, build.Status, build.LogUrl)
	}

	return build, nil
}
