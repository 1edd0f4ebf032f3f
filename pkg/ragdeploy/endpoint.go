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
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
	"google.golang.org/api/option"
	"google.golang.org/api/run/v1"
)

// healthPath is the liveness endpoint exposed by the deployed service.
const healthPath = "/health"

// probeTimeout bounds the single health probe request.
const probeTimeout = 30 * time.Second

// ServiceURL returns the public endpoint of the deployed Cloud Run service.
func (c *Client) ServiceURL(ctx context.Context, project, region, service string) (string, error) {
	if project == "" {
		return "", fmt.Errorf("missing project")
	}
	if region == "" {
		region = DefaultRegion
	}
	if service == "" {
		service = DefaultService
	}

	// The admin API for a service is served from its regional endpoint.
	runService, err := run.NewService(ctx,
		option.WithUserAgent(UserAgent),
		option.WithEndpoint(fmt.Sprintf("https://%s-run.googleapis.com", region)))
	if err != nil {
		return "", fmt.Errorf("failed to create run client: %w", err)
	}

	name := fmt.Sprintf("namespaces/%s/services/%s", project, service)
	resp, err := runService.Namespaces.Services.Get(name).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get service %s: %w", service, err)
	}

	if resp.Status == nil || resp.Status.Url == "" {
		return "", fmt.Errorf("service %s has no public endpoint yet", service)
	}

	return resp.Status.Url, nil
}

// ProbeHealth performs exactly one liveness check against the deployed
// service. There is no retry and no polling; a non-success response or
// transport failure returns an error wrapping ErrProbeFailed.
func ProbeHealth(ctx context.Context, baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("missing service url")
	}

	url := strings.TrimSuffix(baseURL, "/") + healthPath

	logger := logging.FromContext(ctx).With("url", url)
	logger.Debug("probe.start")
	defer logger.Debug("probe.finish")

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}

	return nil
}
