// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/logger"
)

const (
	// DefaultLogFile is where the interactive view logs so records never
	// draw over the screen.
	DefaultLogFile = "a2ui.log"
	// LogFileEnvVar is the environment variable name for log file path
	LogFileEnvVar = "LOG_FILE"
	// LogLevelEnvVar is the environment variable name for log level
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFormatEnvVar is the environment variable name for log format
	LogFormatEnvVar = "LOG_FORMAT"
	// DefaultLogFormat is the default log format
	DefaultLogFormat = logger.FormatSimple
)

type logSettings struct {
	Level  string
	File   string
	Format string
}

// resolveLogSettings applies the priority CLI flags > env vars > config file >
// defaults. Interactive mode defaults the file to DefaultLogFile.
func resolveLogSettings(cli *CLI, cfg *config.LoggerConfig, interactive bool) logSettings {
	var fromConfig config.LoggerConfig
	if cfg != nil {
		fromConfig = *cfg
	}

	s := logSettings{
		Level:  first(cli.LogLevel, os.Getenv(LogLevelEnvVar), fromConfig.Level, "info"),
		File:   first(cli.LogFile, os.Getenv(LogFileEnvVar), fromConfig.File),
		Format: first(cli.LogFormat, os.Getenv(LogFormatEnvVar), fromConfig.Format, DefaultLogFormat),
	}
	if s.File == "" && interactive {
		s.File = DefaultLogFile
	}
	return s
}

// initLogger installs the process logger. It returns the writer logs go to
// and a cleanup function.
func initLogger(s logSettings) (io.Writer, func(), error) {
	lc := config.LoggerConfig{Level: s.Level, File: s.File, Format: s.Format}
	if err := lc.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		output  io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if s.File != "" {
		file, cleanupFn, err := logger.OpenLogFile(s.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(logger.ParseLevel(s.Level), output, s.Format)
	return output, cleanup, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
