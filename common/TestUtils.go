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

package common

import (
	"bytes"
	"encoding/json"
	"io"
	dmchttp "malscan-intake/http"
	"malscan-intake/logging"
	"mime/multipart"
	"testing"

	"github.com/gofiber/fiber/v2"
)

const EnforceRequestToDisk = 10 * 1024 * 1024

// FormFile is one file part of a multipart test request.
type FormFile struct {
	Name string
	Data []byte
}

func GetObjectFromJSON[T any](t *testing.T, data []byte) T {
	t.Helper()

	var objects T
	err := json.Unmarshal(data, &objects)

	if err != nil {
		panic(err)
	}

	return objects
}

func DecodeResponse[T any](t *testing.T, body io.Reader) T {
	t.Helper()

	data, err := io.ReadAll(body)
	if err != nil {
		panic(err)
	}

	return GetObjectFromJSON[T](t, data)
}

func CreateFiberAppForTest(handlers []dmchttp.Handler) *fiber.App {
	fiberConfig := dmchttp.FiberConfig{
		MaxRequestSize: EnforceRequestToDisk,
		Profiler:       false,
		RequestLogger: func(c *fiber.Ctx) error {
			return c.Next()
		},
		Readiness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Liveness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Handlers: handlers,
	}
	app, err := dmchttp.CreateFiberApp(fiberConfig, logging.NewDiscardLog())

	if err != nil {
		panic(err)
	}

	return app
}

func PrepareRequestBody(t *testing.T, field string, data []byte) (body *bytes.Buffer, format string) {
	t.Helper()

	return PrepareMultiFileRequestBody(t, field, FormFile{Name: "fakename", Data: data})
}

// PrepareMultiFileRequestBody writes every file under the same form field, in order.
func PrepareMultiFileRequestBody(t *testing.T, field string, files ...FormFile) (body *bytes.Buffer, format string) {
	t.Helper()

	body = &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	defer writer.Close()

	for _, file := range files {
		part, err := writer.CreateFormFile(field, file.Name)
		if err != nil {
			panic(err)
		}

		_, err = io.Copy(part, bytes.NewReader(file.Data))
		if err != nil {
			panic(err)
		}
	}

	return body, writer.FormDataContentType()
}
