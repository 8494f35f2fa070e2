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
	"context"
	"io"
	"malscan-intake/domain/entities"
)

// AnalysisService is the remote engine that turns a submitted file into a verdict.
//
//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_analysis_service.go -package=mocks -source=AnalysisService.go
type AnalysisService interface {
	Analyze(ctx context.Context, file entities.CandidateFile, content io.Reader) (entities.AnalysisResult, error)
	History(ctx context.Context) ([]entities.AnalysisResult, error)
	Health(ctx context.Context) error
}
