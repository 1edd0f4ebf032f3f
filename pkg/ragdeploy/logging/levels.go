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

package logging

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

const (
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
)

const (
	levelUnknownName = "UNKNOWN"
	levelDebugName   = "DEBUG"
	levelInfoName    = "INFO"
	levelWarningName = "WARNING"
	levelErrorName   = "ERROR"
)

var levelNames = []string{
	levelDebugName,
	levelInfoName,
	levelWarningName,
	levelErrorName,
}

// LevelNames returns the list of all log level names.
func LevelNames() []string {
	return slices.Clone(levelNames)
}

// LookupLevel attempts to get the level that corresponds to the given name.
// If no such level exists, it returns an error. If the empty string is given,
// it returns Info level.
func LookupLevel(name string) (slog.Level, error) {
	switch v := strings.ToUpper(strings.TrimSpace(name)); v {
	case "":
		return LevelInfo, nil
	case levelDebugName:
		return LevelDebug, nil
	case levelInfoName:
		return LevelInfo, nil
	case levelWarningName, "WARN":
		return LevelWarning, nil
	case levelErrorName, "ERR", "FATAL":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("no such level %q, valid levels are %q", name, levelNames)
	}
}

// LevelSlogValue returns the [slog.Value] representation of the level, using
// the Cloud Logging severity names.
func LevelSlogValue(l slog.Level) slog.Value {
	switch l {
	case LevelDebug:
		return slog.StringValue(levelDebugName)
	case LevelInfo:
		return slog.StringValue(levelInfoName)
	case LevelWarning:
		return slog.StringValue(levelWarningName)
	case LevelError:
		return slog.StringValue(levelErrorName)
	default:
		return slog.StringValue(levelUnknownName)
	}
}
