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
package http

import (
	"errors"
	"fmt"
	"malscan-intake/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/keyauth/v2"
	fibertrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gofiber/fiber.v2"
)

const (
	currentVersion = "/v1"
	debugPath      = "/debug"
)

type errorBody struct {
	Error string `json:"error"`
}

// CreateFiberApp builds the intake host: healthchecks and metrics at the root, the intake API
// under /v1, both behind the optional API keys.
func CreateFiberApp(fiberConfig FiberConfig, logger logging.Logger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		// Uploads larger than this never reach the validator.
		BodyLimit: fiberConfig.MaxRequestSize,
		// Routing must match exactly what the authorization filter sees
		CaseSensitive:         true,
		UnescapePath:          false,
		StrictRouting:         true,
		DisableStartupMessage: true,
		ErrorHandler:          jsonErrorHandler(logger),
	})

	if fiberConfig.Tracing {
		app.Use(fibertrace.Middleware(fibertrace.WithServiceName("malscan-intake")))
	}

	if err := useAPIKeys(app, fiberConfig.AuthorizationKeys, logger); err != nil {
		return nil, err
	}

	if fiberConfig.RequestLogger != nil {
		app.Use(fiberConfig.RequestLogger)
	}

	if fiberConfig.Profiler {
		logger.Warnw("Profiler enabled, keep it disabled unless you are investigating the intake",
			"example", "curl http://<hostname>:<port>/debug/pprof/profile?seconds=30 --output profile")
		app.Use(pprof.New())
	}

	app.Get("/healthcheck/readiness", fiberConfig.Readiness)
	app.Get("/healthcheck/liveness", fiberConfig.Liveness)

	if fiberConfig.Metrics != nil {
		app.Get("/metrics", fiberConfig.Metrics)
	}

	api := app.Group(currentVersion)
	for _, handler := range fiberConfig.Handlers {
		api.Add(handler.HTTPMethod, handler.Path, handler.HandlerFunc)
	}

	return app, nil
}

func useAPIKeys(app *fiber.App, entries []string, logger logging.Logger) error {
	if len(entries) == 0 {
		logger.Warnw("No API keys configured, anyone with network access can submit files for analysis",
			"setting", "HTTPSERVER_AUTHORIZATIONKEYS")
		return nil
	}

	keys, err := ParseAPIKeys(entries)
	if err != nil {
		return fmt.Errorf("failed to prepare keys. %w", err)
	}

	app.Use(keyauth.New(keyauth.Config{
		Filter:    func(c *fiber.Ctx) bool { return !requiresAPIKey(c) },
		Validator: APIKeyValidator(keys),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: err.Error()})
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			return c.Next()
		},
	}))

	logger.Infow("API keys enabled", "keys", len(keys))

	return nil
}

// jsonErrorHandler answers framework errors, such as an oversized upload, with the same body
// the intake handlers use.
func jsonErrorHandler(logger logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		} else {
			logger.Errorw("unhandled request error", "error", err, "path", c.Path())
		}

		return c.Status(status).JSON(errorBody{Error: err.Error()})
	}
}
