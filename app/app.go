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

package app

import (
	"context"
	"fmt"
	"io"
	adaptersin "malscan-intake/adapters/in"
	adaptersout "malscan-intake/adapters/out"
	"malscan-intake/common"
	"malscan-intake/config"
	portsout "malscan-intake/domain/ports/out"
	"malscan-intake/domain/services/format"
	"malscan-intake/domain/services/submission"
	"malscan-intake/domain/services/validation"
	intakehttp "malscan-intake/http"
	"malscan-intake/logging"
	"malscan-intake/metrics"
	"net/http"
	"strings"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/uber-go/tally/v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// Keeps retained candidates bounded even if discards fail.
const storageFactor = 4

// Intake is the submission pipeline with every outbound dependency wired in.
type Intake struct {
	Controller *submission.Controller
	Analysis   portsout.AnalysisService
	Formatter  *format.ResultFormatter
}

func NewIntake(appConfig config.AppConfig, metricsScope tally.Scope, logger logging.Logger) (*Intake, error) {
	baseURL, err := appConfig.AnalysisBaseURL()
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis URL. %w", err)
	}

	location, err := appConfig.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone. %w", err)
	}

	formatter := format.NewResultFormatter(location)
	analysisClient := adaptersout.NewAnalysisClient(baseURL, appConfig.Analysis.Timeout, logger)
	candidateStorage := adaptersout.NewCandidateStorage(appConfig.Intake.MaxFileSize * storageFactor)

	var rateLimiter common.RateLimiter = common.UnlimitedRateLimiter{}
	if appConfig.Redis.URL != "" {
		rateLimiter = common.NewRateLimiter(appConfig.Redis.URL, appConfig.Redis.Password, appConfig.Redis.UseTLS, common.RateLimitConfig{
			Hour:   appConfig.Redis.Hour,
			Minute: appConfig.Redis.Minute,
			Key:    appConfig.Redis.Key,
		})
	} else {
		logger.Infow("No redis configured, submissions won't be rate limited")
	}

	var notifier portsout.Notifier
	if appConfig.Notification.Slack.Webhook != "" {
		notifier = adaptersout.NewSlackNotifier(appConfig.Notification.Slack.Webhook, appConfig.Notification.Slack.ChannelID, formatter)
	}

	validator := validation.NewFileValidator(appConfig.Intake.MaxFileSize, appConfig.Intake.AllowedExtensions)
	reducer := submission.NewReducer(validator, common.NewID)
	controller := submission.NewController(reducer, candidateStorage, analysisClient, rateLimiter, notifier, metricsScope, logger)

	logger.Infow("Intake configured", "analysis_url", baseURL, "max_file_size", format.FormatSize(appConfig.Intake.MaxFileSize),
		"extensions", appConfig.Intake.AllowedExtensions, "notifications", notifier != nil)

	return &Intake{Controller: controller, Analysis: analysisClient, Formatter: formatter}, nil
}

// Serve runs the intake behind the HTTP API until ctx is done or the listener fails.
//
//nolint:cyclop
func Serve(ctx context.Context, appConfig config.AppConfig, logger logging.Logger) error {
	if appConfig.HTTPServer.Tracing {
		// Enable Datadog tracer
		tracer.Start()
		defer tracer.Stop()

		// Enable Datadog Profiler
		if err := profiler.Start(); err != nil {
			return err
		}
		defer profiler.Stop()
	}

	var metricsHandler http.Handler
	var metricsScope tally.Scope
	var metricsClose io.Closer

	if appConfig.HTTPServer.Metrics {
		metricsScope, metricsHandler, metricsClose = metrics.NewPrometheusScope()
		defer metricsClose.Close()
	} else {
		metricsScope, metricsHandler, _ = metrics.NewNoopScope()
	}

	intake, err := NewIntake(appConfig, metricsScope, logger)
	if err != nil {
		return err
	}

	intake.Controller.Run(ctx)

	// Controllers
	intakeController := adaptersin.NewIntakeController(intake.Controller, intake.Formatter, logger)
	historyController := adaptersin.NewHistoryController(intake.Analysis, intake.Formatter, logger)

	fiberConfig := intakehttp.FiberConfig{
		MaxRequestSize:    appConfig.HTTPServer.MaxRequestSize,
		AuthorizationKeys: appConfig.HTTPServer.AuthorizationKeys,
		Profiler:          appConfig.HTTPServer.Profiler,
		Tracing:           appConfig.HTTPServer.Tracing,
		Metrics:           adaptor.HTTPHandler(metricsHandler),
		RequestLogger: func(c *fiber.Ctx) error {
			err := c.Next()
			// Prevent generating lots of requests because of healthcheck
			if !strings.HasPrefix(c.Path(), "/healthcheck/") && !strings.HasPrefix(c.Path(), "/metrics") {
				logger.Infow("Received webapi request", "ip", c.IP(), "method", c.Method(), "url", c.BaseURL(), "path", c.Path(),
					"submitter", intakehttp.Submitter(c), "response_status", c.Response().StatusCode())
			}
			return err
		},
		Readiness: func(c *fiber.Ctx) error {
			if err := intake.Analysis.Health(c.UserContext()); err != nil {
				logger.Errorw("Failed to connect to the analysis service in readiness.", "error", err)
				return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Analysis service not reachable. %s", err))
			}

			return c.SendStatus(fiber.StatusOK)
		},
		Liveness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Handlers: []intakehttp.Handler{
			{HTTPMethod: "POST", Path: "/files", HandlerFunc: intakeController.PickFile},
			{HTTPMethod: "POST", Path: "/drops", HandlerFunc: intakeController.DropFiles},
			{HTTPMethod: "POST", Path: "/drag/:kind", HandlerFunc: intakeController.Drag},
			{HTTPMethod: "POST", Path: "/submissions", HandlerFunc: intakeController.Submit},
			{HTTPMethod: "DELETE", Path: "/submissions", HandlerFunc: intakeController.Cancel},
			{HTTPMethod: "GET", Path: "/state", HandlerFunc: intakeController.GetState},
			{HTTPMethod: "GET", Path: "/history", HandlerFunc: historyController.GetHistory},
		},
	}

	app, err := intakehttp.CreateFiberApp(fiberConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fiber framework. Error: %s", err)
	}

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			logger.Errorw("Failed to shutdown http server", "error", err)
		}
	}()

	logger.Infow("Listening", "port", appConfig.HTTPServer.Port)

	return app.Listen(fmt.Sprintf(":%d", appConfig.HTTPServer.Port))
}
