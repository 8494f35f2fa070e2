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

// Status is kept as sent by the analysis service; values outside the known ones are legal.
type Status string

const (
	Clean      Status = "Clean"
	Suspicious Status = "Suspicious"
	Malicious  Status = "Malicious"
)

type Indicator string

const (
	Positive Indicator = "positive"
	Caution  Indicator = "caution"
	Alert    Indicator = "alert"
)

type YaraMatch struct {
	Category string
}

type AnalysisResult struct {
	Hash            string
	FileSizeBytes   int64
	TimestampISO    string
	Status          Status
	Recommendations string
	YaraMatches     []YaraMatch

	// Optional fields some analysis services add on top of the verdict.
	FileName   string
	RiskLevel  string
	Indicators []string
}
