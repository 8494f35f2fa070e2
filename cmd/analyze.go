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
	"errors"
	"fmt"
	"io"
	adapterentities "malscan-intake/adapters/entities"
	"malscan-intake/app"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/services/submission"
	"malscan-intake/metrics"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errAnalysisFailed = errors.New("analysis did not succeed")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Validate a single file, submit it and print the verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		file, err := rawFileFromPath(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		metricsScope, _, _ := metrics.NewNoopScope()

		intake, err := app.NewIntake(appConfig, metricsScope, logger)
		if err != nil {
			return err
		}

		intake.Controller.Run(ctx)

		state, err := analyze(ctx, intake.Controller, file)
		if err != nil {
			return err
		}

		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		defer encoder.Close()

		if err := encoder.Encode(adapterentities.MapToStateResponse(state, intake.Formatter)); err != nil {
			return fmt.Errorf("failed to print result. %w", err)
		}

		if state.Phase != entities.Succeeded {
			return fmt.Errorf("%w: %s", errAnalysisFailed, state.Error)
		}

		return nil
	},
}

// analyze drives the same transitions a user would: pick, submit, wait.
func analyze(ctx context.Context, controller *submission.Controller, file entities.RawFileMetadata) (submission.State, error) {
	state, err := controller.Pick(ctx, []entities.RawFileMetadata{file})
	if err != nil || !state.CanSubmit() {
		return state, err
	}

	if _, err := controller.Submit(ctx); err != nil {
		return state, err
	}

	return controller.AwaitSettled(ctx)
}

func rawFileFromPath(path string) (entities.RawFileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entities.RawFileMetadata{}, fmt.Errorf("failed to read %s. %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return entities.RawFileMetadata{}, fmt.Errorf("%s is not a regular file", path)
	}

	return entities.RawFileMetadata{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
		Content: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
