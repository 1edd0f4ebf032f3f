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
	"os"

	"golang.org/x/oauth2/google"
)

// cloudPlatformScope is the OAuth scope every provisioning call needs.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// CheckCredentials verifies that Application Default Credentials resolve.
// The error includes the remediation a human operator needs.
func CheckCredentials(ctx context.Context) (*google.Credentials, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("no active credentials found, run `gcloud auth application-default login` first: %w", err)
	}
	return creds, nil
}

// ResolveProject determines the target project: the explicit value wins, then
// the GOOGLE_CLOUD_PROJECT environment variable, then the project attached to
// the credentials.
func ResolveProject(explicit string, creds *google.Credentials) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v, nil
	}
	if creds != nil && creds.ProjectID != "" {
		return creds.ProjectID, nil
	}
	return "", fmt.Errorf("no project configured, pass --project, set GOOGLE_CLOUD_PROJECT, or run `gcloud config set project`")
}

// CheckEnvFile verifies that the environment file exists. If a template with
// an .example suffix sits next to the expected path, the error suggests
// copying it.
func CheckEnvFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	template := path + ".example"
	if _, err := os.Stat(template); err == nil {
		return fmt.Errorf("environment file %s not found, copy %s to %s and fill in your values", path, template, path)
	}

	return fmt.Errorf("environment file %s not found", path)
}
