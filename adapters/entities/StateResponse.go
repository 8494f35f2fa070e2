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

package entities

import (
	"malscan-intake/domain/entities"
	"malscan-intake/domain/services/format"
	"malscan-intake/domain/services/submission"
)

type FileResponse struct {
	Name      string `json:"name"`
	Size      string `json:"size"`
	SizeBytes int64  `json:"size_bytes"`
	Extension string `json:"extension"`
}

// StateResponse is the intake screen as the host renders it.
type StateResponse struct {
	State      entities.SubmissionState `json:"state"`
	DragActive bool                     `json:"drag_active"`
	File       *FileResponse            `json:"file,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Result     *format.ResultView       `json:"result,omitempty"`
	CanSubmit  bool                     `json:"can_submit"`
}

func MapToStateResponse(state submission.State, formatter *format.ResultFormatter) StateResponse {
	response := StateResponse{
		State:      state.Phase,
		DragActive: state.Intake.DragActive,
		Error:      state.Error,
		CanSubmit:  state.CanSubmit(),
	}

	if state.File != nil {
		response.File = &FileResponse{
			Name:      state.File.Name,
			Size:      format.FormatSize(state.File.SizeBytes),
			SizeBytes: state.File.SizeBytes,
			Extension: state.File.Extension,
		}
	}

	if state.Result != nil {
		view := formatter.FormatResult(*state.Result)
		response.Result = &view
	}

	return response
}

type HistoryResponse struct {
	Results []format.ResultView `json:"results"`
	Error   string              `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
