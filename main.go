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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/graphrag-ops/ragdeploy/internal/version"
	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy"
	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
)

var (
	stdout = os.Stdout
	stderr = os.Stderr

	flagProject   string
	flagRegion    string
	flagService   string
	flagEnvFile   string
	flagLogLevel  string
	flagLogFormat string
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "ragdeploy",
	Short: "Provision secrets and deploy the GraphRAG query service",
	Long: strings.Trim(`
ragdeploy validates a local environment file, provisions the deployment
secrets in Secret Manager, grants the runtime service account access to
them, submits a Cloud Build, and probes the deployed service once.

Configuration is read from a KEY=value environment file (.env by default)
in the working directory. Secret values never appear in build
substitutions; only the non-secret connection parameters do.
`, "\n"),
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the full deployment pipeline",
	Long: strings.Trim(`
Runs the full pipeline: verify credentials and project, load and validate
the environment file, enable the required APIs, provision secrets, submit
the build, resolve the service endpoint, and probe it once.

The pipeline is fail-fast: the first failing step aborts everything after
it. Nothing is retried and nothing is rolled back. A failed health probe
after a successful build is reported as a warning only.
`, "\n"),
	Example: strings.Trim(`
  # Deploy using .env from the current directory
  ragdeploy deploy

  # Deploy into an explicit project and region
  ragdeploy deploy --project my-project --region europe-west1
`, "\n"),
	Args: cobra.ExactArgs(0),
	Run:  deployRun,
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Provision secrets without deploying",
	Long: strings.Trim(`
Loads and validates the environment file, then creates or updates the
managed secrets and grants the runtime service account accessor permission
on each secret that was written. Values absent from the environment file
are skipped with a warning; the required keys must be present.
`, "\n"),
	Example: strings.Trim(`
  # Provision secrets from .env
  ragdeploy secrets
`, "\n"),
	Args: cobra.ExactArgs(0),
	Run:  secretsRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the service endpoint and probe it once",
	Args:  cobra.ExactArgs(0),
	Run:   statusRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Args:  cobra.ExactArgs(0),
	Run:   versionRun,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "",
		"target project ID (defaults to GOOGLE_CLOUD_PROJECT or the credentials' project)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", ragdeploy.DefaultRegion,
		"deployment region")
	rootCmd.PersistentFlags().StringVar(&flagService, "service", ragdeploy.DefaultService,
		"Cloud Run service name")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ragdeploy.DefaultEnvFile,
		"path to the environment file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level, one of "+strings.Join(logging.LevelNames(), ", "))
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text",
		"log format, one of "+strings.Join(logging.FormatNames(), ", "))
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"log everything, including source locations")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		handleError(err, 2)
	}
}

func deployRun(_ *cobra.Command, _ []string) {
	ctx := loggingCtx(cliCtx())

	project, env := preflight(ctx)

	client, err := ragdeploy.New(ctx)
	if err != nil {
		handleError(err, 1)
	}
	defer client.Close()

	res, err := client.Deploy(ctx, &ragdeploy.DeployRequest{
		Project: project,
		Region:  flagRegion,
		Service: flagService,
		Env:     env,
	})
	if err != nil {
		if ragdeploy.IsBuildFailedErr(err) {
			fmt.Fprintf(stderr, "%s\n\n", err)
			fmt.Fprint(stderr, strings.Trim(`
The build did not succeed. Common causes:
  1. Misconfigured values in the environment file
  2. Missing IAM permissions for Cloud Build or Cloud Run
  3. Billing is not enabled on the project
`, "\n")+"\n")
		}
		handleError(err, 1)
	}

	fmt.Fprintf(stdout, "Deployment complete.\n")
	fmt.Fprintf(stdout, "  Build:   %s\n", res.BuildID)
	fmt.Fprintf(stdout, "  Service: %s\n", res.ServiceURL)
	if res.ProbeErr != nil {
		fmt.Fprintf(stdout, "  Health:  FAILED (%s)\n", res.ProbeErr)
	} else {
		fmt.Fprintf(stdout, "  Health:  ok\n")
	}
}

func secretsRun(_ *cobra.Command, _ []string) {
	ctx := loggingCtx(cliCtx())

	project, env := preflight(ctx)

	client, err := ragdeploy.New(ctx)
	if err != nil {
		handleError(err, 1)
	}
	defer client.Close()

	member, err := client.RuntimeServiceAccount(ctx, project)
	if err != nil {
		handleError(err, 1)
	}

	if err := client.Provision(ctx, &ragdeploy.ProvisionRequest{
		Project: project,
		Env:     env,
		Members: []string{member},
	}); err != nil {
		handleError(err, 1)
	}

	fmt.Fprintf(stdout, "Secrets provisioned; accessor granted to %s\n", member)
}

func statusRun(_ *cobra.Command, _ []string) {
	ctx := loggingCtx(cliCtx())

	creds, err := ragdeploy.CheckCredentials(ctx)
	if err != nil {
		handleError(err, 2)
	}
	project, err := ragdeploy.ResolveProject(flagProject, creds)
	if err != nil {
		handleError(err, 2)
	}

	client, err := ragdeploy.New(ctx)
	if err != nil {
		handleError(err, 1)
	}
	defer client.Close()

	url, err := client.ServiceURL(ctx, project, flagRegion, flagService)
	if err != nil {
		handleError(err, 1)
	}

	fmt.Fprintf(stdout, "Service: %s\n", url)
	if err := ragdeploy.ProbeHealth(ctx, url); err != nil {
		fmt.Fprintf(stdout, "Health:  FAILED (%s)\n", err)
		return
	}
	fmt.Fprintf(stdout, "Health:  ok\n")
}

func versionRun(_ *cobra.Command, _ []string) {
	fmt.Fprintf(stdout, "%s\n", version.HumanVersion)
}

// preflight runs the precondition stages shared by deploy and secrets:
// credentials, project resolution, environment file presence, and
// environment validation. Any failure exits with status 2 before a single
// remote provisioning call is made.
func preflight(ctx context.Context) (string, *ragdeploy.Environment) {
	var (
		creds   *google.Credentials
		project string
		env     *ragdeploy.Environment
	)

	stages := []ragdeploy.Stage{
		{Name: "credentials", Run: func(ctx context.Context) error {
			c, err := ragdeploy.CheckCredentials(ctx)
			creds = c
			return err
		}},
		{Name: "project", Run: func(ctx context.Context) error {
			p, err := ragdeploy.ResolveProject(flagProject, creds)
			project = p
			return err
		}},
		{Name: "envfile", Run: func(ctx context.Context) error {
			return ragdeploy.CheckEnvFile(flagEnvFile)
		}},
		{Name: "validate", Run: func(ctx context.Context) error {
			e, err := ragdeploy.ParseEnvFile(flagEnvFile)
			if err != nil {
				return err
			}
			if err := e.Validate(); err != nil {
				return err
			}
			env = e
			return nil
		}},
	}

	if err := ragdeploy.RunStages(ctx, stages); err != nil {
		handleError(err, 2)
	}

	return project, env
}

// loggingCtx attaches a logger built from the logging flags to the context.
func loggingCtx(ctx context.Context) context.Context {
	logger, err := logging.New(stderr, flagLogLevel, flagLogFormat, flagDebug)
	if err != nil {
		handleError(err, 2)
	}
	return logging.WithLogger(ctx, logger)
}

// cliCtx is a context that is canceled on os.Interrupt.
func cliCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// handleError prints the error to stderr and exits with the given status.
func handleError(err error, status int) {
	fmt.Fprintf(stderr, "%s\n", err)
	os.Exit(status)
}
