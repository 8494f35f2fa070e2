/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package cmd

import (
	"context"
	"fmt"
	"malscan-intake/config"
	"malscan-intake/logging"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir   string
	debug       bool
	logEncoding string
}

var opts rootOptions

var rootCmd = &cobra.Command{
	Use:           "malscan-intake",
	Short:         "malscan-intake validates candidate files and submits them to a malware analysis service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if opts.configDir != "" {
			return os.Setenv("CONFIG_DIR", opts.configDir)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", os.Getenv("CONFIG_DIR"), "directory holding config.yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "print debug logs")
	rootCmd.PersistentFlags().StringVar(&opts.logEncoding, "log-encoding", "", "log encoding, json or console (defaults to the configured one)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig reads the configuration and builds the logger, command line flags taking precedence.
func loadConfig() (config.AppConfig, logging.Logger, error) {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("failed to load config. %w", err)
	}

	if opts.debug {
		appConfig.Logging.Debug = true
	}

	if opts.logEncoding != "" {
		appConfig.Logging.Encoding = opts.logEncoding
	}

	logger, err := logging.NewZapLogger(appConfig.Logging.Debug, appConfig.Logging.Encoding)
	if err != nil {
		return config.AppConfig{}, nil, err
	}

	return appConfig, logger, nil
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
