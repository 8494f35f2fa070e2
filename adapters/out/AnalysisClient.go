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

package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	adapterentities "malscan-intake/adapters/entities"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/ports/out"
	"malscan-intake/fileutils"
	"malscan-intake/logging"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	analyzePath = "/analyze"
	historyPath = "/analysis-history"
	healthPath  = "/health"

	// Longest error body copied into a ServerError.
	maxErrorBody = 64 * 1024
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type AnalysisClient struct {
	baseURL  string
	client   *http.Client
	validate *validator.Validate
	logger   logging.Logger
}

// NewAnalysisClient talks to the analysis service mounted at baseURL. A zero timeout leaves
// requests unbounded.
func NewAnalysisClient(baseURL string, timeout time.Duration, logger logging.Logger) *AnalysisClient {
	client := http.DefaultClient
	if timeout > 0 {
		client = &http.Client{Timeout: timeout}
	}

	return &AnalysisClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

func (a *AnalysisClient) Analyze(ctx context.Context, file entities.CandidateFile, content io.Reader) (entities.AnalysisResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return entities.AnalysisResult{}, &out.TransportError{Err: fmt.Errorf("failed to read candidate file. %w", err)}
	}

	contentType := fileutils.DetectContentType(data)

	bodyRequest := new(bytes.Buffer)
	writer := multipart.NewWriter(bodyRequest)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return entities.AnalysisResult{}, &out.TransportError{Err: fmt.Errorf("failed to encode body request for analysis. %w", err)}
	}

	if _, err = part.Write(data); err != nil {
		return entities.AnalysisResult{}, &out.TransportError{Err: fmt.Errorf("failed to prepare body request for analysis. %w", err)}
	}

	if err = writer.Close(); err != nil {
		return entities.AnalysisResult{}, &out.TransportError{Err: fmt.Errorf("failed to finish body request for analysis. %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+analyzePath, bodyRequest)
	if err != nil {
		return entities.AnalysisResult{}, &out.TransportError{Err: fmt.Errorf("failed to encode request for analysis. %w", err)}
	}

	req.Header.Add("accept", "application/json")
	req.Header.Add("Content-Type", writer.FormDataContentType())

	a.logger.Debugw("Sending file to analysis service", "file_name", file.Name, "size", len(data), "content_type", contentType, "executable", fileutils.IsExecutable(data))

	var response adapterentities.AnalysisResponse
	if err := a.do(ctx, req, &response); err != nil {
		return entities.AnalysisResult{}, err
	}

	if err := a.validate.Struct(response); err != nil {
		return entities.AnalysisResult{}, &out.MalformedResponseError{Err: fmt.Errorf("incomplete verdict. %w", err)}
	}

	return adapterentities.MapToAnalysisResult(response), nil
}

// History returns the latest verdicts kept by the analysis service.
func (a *AnalysisClient) History(ctx context.Context) ([]entities.AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+historyPath, http.NoBody)
	if err != nil {
		return nil, &out.TransportError{Err: fmt.Errorf("failed to encode history request. %w", err)}
	}

	req.Header.Add("accept", "application/json")

	var responses []adapterentities.AnalysisResponse
	if err := a.do(ctx, req, &responses); err != nil {
		return nil, err
	}

	results := make([]entities.AnalysisResult, 0, len(responses))
	for _, response := range responses {
		if err := a.validate.Struct(response); err != nil {
			a.logger.Warnw("Skipping malformed history entry", "error", err, "hash", response.Hash)
			continue
		}

		results = append(results, adapterentities.MapToAnalysisResult(response))
	}

	return results, nil
}

func (a *AnalysisClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+healthPath, http.NoBody)
	if err != nil {
		return &out.TransportError{Err: fmt.Errorf("failed to encode health request. %w", err)}
	}

	return a.do(ctx, req, nil)
}

// do sends req and decodes a 2xx body into target, unless target is nil.
func (a *AnalysisClient) do(ctx context.Context, req *http.Request, target interface{}) error {
	res, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return out.ErrCancelled
		}

		return &out.TransportError{Err: fmt.Errorf("request to analysis service failed. %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return serverError(res)
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		if ctx.Err() != nil {
			return out.ErrCancelled
		}

		return &out.MalformedResponseError{Err: fmt.Errorf("failed to decode analysis response. %w", err)}
	}

	return nil
}

func serverError(res *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	message := string(body)

	if err != nil || strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Analysis failed with status %d", res.StatusCode)
	}

	return &out.ServerError{StatusCode: res.StatusCode, Message: message}
}
