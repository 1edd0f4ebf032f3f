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
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/graphrag-ops/ragdeploy/pkg/ragdeploy/logging"
	"google.golang.org/api/cloudbuild/v1"
)

// stagingBucketSuffix follows the convention for the per-project build
// staging bucket.
const stagingBucketSuffix = "_cloudbuild"

// sourceSkipNames are directory or file names excluded from the staged
// source. The environment file carries secrets and never leaves the machine.
var sourceSkipNames = map[string]bool{
	".git": true,
	".env": true,
}

// StageSource packs the given directory into a gzipped tarball and uploads it
// to the project's build staging bucket, creating the bucket if it does not
// exist. It returns the storage source reference for the build request.
func (c *Client) StageSource(ctx context.Context, project, dir string) (*cloudbuild.StorageSource, error) {
	if project == "" {
		return nil, fmt.Errorf("missing project")
	}
	if dir == "" {
		dir = "."
	}

	bucket := project + stagingBucketSuffix
	object := fmt.Sprintf("source/%d.tgz", time.Now().UnixNano())

	logger := logging.FromContext(ctx).With("bucket", bucket, "object", object)

	logger.Debug("stage.start")
	defer logger.Debug("stage.finish")

	if err := c.ensureBucket(ctx, project, bucket); err != nil {
		return nil, err
	}

	w := c.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/gzip"

	if err := writeTarball(w, dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write source archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to upload source archive: %w", err)
	}

	return &cloudbuild.StorageSource{
		Bucket: bucket,
		Object: object,
	}, nil
}

// ensureBucket creates the staging bucket if it does not already exist.
func (c *Client) ensureBucket(ctx context.Context, project, bucket string) error {
	handle := c.storageClient.Bucket(bucket)

	_, err := handle.Attrs(ctx)
	switch err {
	case nil:
		return nil
	case storage.ErrBucketNotExist:
		if err := handle.Create(ctx, project, nil); err != nil {
			return fmt.Errorf("failed to create staging bucket %s: %w", bucket, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to check staging bucket %s: %w", bucket, err)
	}
}

// writeTarball writes the directory contents as a gzipped tarball, skipping
// version control metadata and the local environment file.
func writeTarball(w io.Writer, dir string) error {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if sourceSkipNames[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gzw.Close()
}
