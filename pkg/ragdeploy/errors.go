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

import "errors"

const (
	// ErrMissingKey is the error returned when a required environment key is
	// absent or empty. It is always wrapped with the name of the key.
	ErrMissingKey = Error("missing required environment key")

	// ErrNoCandidate is the error returned when none of the candidate keys of
	// an ordered-fallback lookup holds a non-empty value.
	ErrNoCandidate = Error("no candidate key has a value")

	// ErrBuildFailed is the error returned when a submitted build reaches a
	// terminal state other than success.
	ErrBuildFailed = Error("build did not succeed")

	// ErrProbeFailed is the error returned when the one-shot health probe
	// against the deployed service does not return a success status.
	ErrProbeFailed = Error("health probe failed")
)

// Error is an error from ragdeploy.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// IsMissingKeyErr returns true if the given error means a required
// environment key was absent.
func IsMissingKeyErr(err error) bool {
	return errors.Is(err, ErrMissingKey)
}

// IsNoCandidateErr returns true if the given error means no candidate key of
// an ordered-fallback lookup was set.
func IsNoCandidateErr(err error) bool {
	return errors.Is(err, ErrNoCandidate)
}

// IsBuildFailedErr returns true if the given error means the build reached a
// terminal non-success state.
func IsBuildFailedErr(err error) bool {
	return errors.Is(err, ErrBuildFailed)
}

// IsProbeFailedErr returns true if the given error means the health probe did
// not pass.
func IsProbeFailedErr(err error) bool {
	return errors.Is(err, ErrProbeFailed)
}
