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

package format

import (
	"fmt"
	"malscan-intake/domain/entities"
	"time"
)

const (
	zeroSize    = "0 Bytes"
	invalidDate = "Invalid Date"
	displayDate = "1/2/2006, 3:04:05 PM"
	kibibyte    = 1024
)

//nolint:gochecknoglobals
var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// Layouts accepted by FormatTimestamp. Zoned layouts first, then naive ones, which are read
// in the viewer's location.
//
//nolint:gochecknoglobals
var (
	zonedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
	}
)

const dateOnlyLayout = "2006-01-02"

// ResultView is a verdict ready to be displayed.
type ResultView struct {
	Hash            string             `json:"hash"`
	Size            string             `json:"size"`
	Analyzed        string             `json:"analyzed"`
	Status          string             `json:"status"`
	Indicator       entities.Indicator `json:"indicator"`
	Recommendations string             `json:"recommendations"`
	Categories      []string           `json:"categories"`
	FileName        string             `json:"file_name,omitempty"`
	RiskLevel       string             `json:"risk_level,omitempty"`
	Indicators      []string           `json:"indicators,omitempty"`
}

type ResultFormatter struct {
	location *time.Location
}

func NewResultFormatter(location *time.Location) *ResultFormatter {
	if location == nil {
		location = time.Local
	}

	return &ResultFormatter{location: location}
}

// FormatSize renders bytes with the largest unit up to GB that keeps the value >= 1.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return zeroSize
	}

	unit := 0
	divisor := int64(1)

	for unit < len(sizeUnits)-1 && bytes/divisor >= kibibyte {
		divisor *= kibibyte
		unit++
	}

	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(divisor), sizeUnits[unit])
}

// FormatTimestamp never fails; input it can't read comes back as "Invalid Date".
func (f *ResultFormatter) FormatTimestamp(iso string) string {
	for _, layout := range zonedLayouts {
		if parsed, err := time.Parse(layout, iso); err == nil {
			return parsed.In(f.location).Format(displayDate)
		}
	}

	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, iso, f.location); err == nil {
			return parsed.Format(displayDate)
		}
	}

	// Browsers read a bare date as UTC midnight.
	if parsed, err := time.Parse(dateOnlyLayout, iso); err == nil {
		return parsed.In(f.location).Format(displayDate)
	}

	return invalidDate
}

func StatusIndicator(status entities.Status) entities.Indicator {
	switch status {
	case entities.Clean:
		return entities.Positive
	case entities.Suspicious:
		return entities.Caution
	default:
		return entities.Alert
	}
}

func (f *ResultFormatter) FormatResult(result entities.AnalysisResult) ResultView {
	categories := make([]string, 0, len(result.YaraMatches))
	for _, match := range result.YaraMatches {
		categories = append(categories, match.Category)
	}

	return ResultView{
		Hash:            result.Hash,
		Size:            FormatSize(result.FileSizeBytes),
		Analyzed:        f.FormatTimestamp(result.TimestampISO),
		Status:          string(result.Status),
		Indicator:       StatusIndicator(result.Status),
		Recommendations: result.Recommendations,
		Categories:      categories,
		FileName:        result.FileName,
		RiskLevel:       result.RiskLevel,
		Indicators:      result.Indicators,
	}
}
