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

package in

import (
	"context"
	"errors"
	"io"
	adapterentities "malscan-intake/adapters/entities"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/services/format"
	"malscan-intake/domain/services/intake"
	"malscan-intake/domain/services/submission"
	"malscan-intake/logging"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	pickField = "file"
	dropField = "files"

	// Upper bound for GET /state?wait=...
	maxWait = 5 * time.Minute

	errNoMultipartForm = "request must be multipart/form-data"
	errInvalidWait     = "wait must be a duration such as 30s"
	errUnavailable     = "intake is not running"
)

type IntakeController struct {
	controller *submission.Controller
	formatter  *format.ResultFormatter
	logger     logging.Logger
}

func NewIntakeController(controller *submission.Controller, formatter *format.ResultFormatter, logger logging.Logger) IntakeController {
	return IntakeController{controller: controller, formatter: formatter, logger: logger}
}

// PickFile selects the first file of the multipart field "file".
func (i *IntakeController) PickFile(c *fiber.Ctx) error {
	files, err := formFiles(c, pickField)
	if err != nil {
		i.logger.Errorw("no multipart form found", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(adapterentities.ErrorResponse{Error: errNoMultipartForm})
	}

	state, err := i.controller.Pick(c.UserContext(), files)

	return i.respond(c, fiber.StatusOK, state, err)
}

// DropFiles ends a drag and selects the first file of the multipart field "files". An empty
// drop only resets the drag indicator.
func (i *IntakeController) DropFiles(c *fiber.Ctx) error {
	files, err := formFiles(c, dropField)
	if err != nil {
		// Nothing was dropped, but the drag is over all the same.
		files = nil
	}

	state, err := i.controller.Drop(c.UserContext(), files)

	return i.respond(c, fiber.StatusOK, state, err)
}

func (i *IntakeController) Drag(c *fiber.Ctx) error {
	kind, err := intake.ParseDragKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(adapterentities.ErrorResponse{Error: err.Error()})
	}

	state, err := i.controller.Drag(c.UserContext(), kind)

	return i.respond(c, fiber.StatusOK, state, err)
}

// Submit starts the analysis of the selected file. It answers as soon as the request is issued.
func (i *IntakeController) Submit(c *fiber.Ctx) error {
	state, err := i.controller.Submit(c.UserContext())

	return i.respond(c, fiber.StatusAccepted, state, err)
}

func (i *IntakeController) Cancel(c *fiber.Ctx) error {
	state, err := i.controller.Cancel(c.UserContext())

	return i.respond(c, fiber.StatusOK, state, err)
}

// GetState returns the current screen. With ?wait=<duration> it first waits, at most that long,
// for an in-flight analysis to settle.
func (i *IntakeController) GetState(c *fiber.Ctx) error {
	wait := c.Query("wait")
	if wait == "" {
		return i.respond(c, fiber.StatusOK, i.controller.State(), nil)
	}

	timeout, err := time.ParseDuration(wait)
	if err != nil || timeout < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(adapterentities.ErrorResponse{Error: errInvalidWait})
	}

	if timeout > maxWait {
		timeout = maxWait
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	state, err := i.controller.AwaitSettled(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	return i.respond(c, fiber.StatusOK, state, err)
}

func (i *IntakeController) respond(c *fiber.Ctx, status int, state submission.State, err error) error {
	if err != nil {
		i.logger.Errorw("failed to dispatch intake event", "error", err, "path", c.Path())
		return c.Status(fiber.StatusServiceUnavailable).JSON(adapterentities.ErrorResponse{Error: errUnavailable})
	}

	return c.Status(status).JSON(adapterentities.MapToStateResponse(state, i.formatter))
}

func formFiles(c *fiber.Ctx, field string) ([]entities.RawFileMetadata, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	headers := form.File[field]
	files := make([]entities.RawFileMetadata, 0, len(headers))

	for _, header := range headers {
		files = append(files, rawFileFromHeader(header))
	}

	return files, nil
}

// The multipart parts live until the request ends, which outlasts the synchronous retain step.
func rawFileFromHeader(header *multipart.FileHeader) entities.RawFileMetadata {
	return entities.RawFileMetadata{
		Name:      header.Filename,
		SizeBytes: header.Size,
		Content: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}
