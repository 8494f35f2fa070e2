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

import "malscan-intake/domain/entities"

type YaraMatchResponse struct {
	Category string `json:"category"`
}

// AnalysisResponse is the verdict body returned by the analysis service.
type AnalysisResponse struct {
	Hash            string              `json:"hash" validate:"required"`
	FileSize        int64               `json:"file_size" validate:"gte=0"`
	Timestamp       string              `json:"timestamp" validate:"required"`
	Status          string              `json:"status" validate:"required"`
	Recommendations string              `json:"recommendations"`
	YaraMatches     []YaraMatchResponse `json:"yara_matches,omitempty"`
	FileName        string              `json:"file_name,omitempty"`
	RiskLevel       string              `json:"risk_level,omitempty"`
	Indicators      []string            `json:"indicators,omitempty"`
}

func MapToAnalysisResult(response AnalysisResponse) entities.AnalysisResult {
	var matches []entities.YaraMatch
	for _, match := range response.YaraMatches {
		matches = append(matches, entities.YaraMatch{Category: match.Category})
	}

	return entities.AnalysisResult{
		Hash:            response.Hash,
		FileSizeBytes:   response.FileSize,
		TimestampISO:    response.Timestamp,
		Status:          entities.Status(response.Status),
		Recommendations: response.Recommendations,
		YaraMatches:     matches,
		FileName:        response.FileName,
		RiskLevel:       response.RiskLevel,
		Indicators:      response.Indicators,
	}
}
