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
	adapterentities "malscan-intake/adapters/entities"
	"malscan-intake/domain/ports/out"
	"malscan-intake/domain/services/format"
	"malscan-intake/domain/services/submission"
	"malscan-intake/logging"

	"github.com/gofiber/fiber/v2"
)

type HistoryController struct {
	analysis  out.AnalysisService
	formatter *format.ResultFormatter
	logger    logging.Logger
}

func NewHistoryController(analysis out.AnalysisService, formatter *format.ResultFormatter, logger logging.Logger) HistoryController {
	return HistoryController{analysis: analysis, formatter: formatter, logger: logger}
}

// GetHistory lists the latest verdicts of the analysis service, formatted for display.
func (h *HistoryController) GetHistory(c *fiber.Ctx) error {
	response := adapterentities.HistoryResponse{Results: []format.ResultView{}}

	results, err := h.analysis.History(c.UserContext())
	if err != nil {
		h.logger.Errorw("failed to obtain analysis history", "error", err)
		response.Error = submission.ErrorMessage(err)

		return c.Status(fiber.StatusBadGateway).JSON(response)
	}

	for _, result := range results {
		response.Results = append(response.Results, h.formatter.FormatResult(result))
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
