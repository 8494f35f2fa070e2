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
	"errors"
	adapterentities "malscan-intake/adapters/entities"
	"malscan-intake/common"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/ports/out"
	"malscan-intake/domain/services/format"
	http2 "malscan-intake/http"
	"malscan-intake/logging"
	"malscan-intake/mocks"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyApp(t *testing.T, analysis out.AnalysisService) *fiber.App {
	historyController := NewHistoryController(analysis, format.NewResultFormatter(time.UTC), logging.NewDiscardLog())

	return common.CreateFiberAppForTest([]http2.Handler{
		{HTTPMethod: "GET", Path: "/history", HandlerFunc: historyController.GetHistory},
	})
}

func TestGetHistory(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	analysis := mocks.NewMockAnalysisService(mockCtrl)
	analysis.EXPECT().History(gomock.Any()).Return([]entities.AnalysisResult{
		{Hash: "a", FileSizeBytes: 1024, TimestampISO: "2024-03-01T12:00:00Z", Status: entities.Clean},
		{Hash: "b", FileSizeBytes: 10, TimestampISO: "garbage", Status: "Unknown", YaraMatches: []entities.YaraMatch{{Category: "packer"}}},
	}, nil)

	httpResponse, err := historyApp(t, analysis).Test(httptest.NewRequest("GET", "/v1/history", http.NoBody), -1)
	require.NoError(t, err)
	defer httpResponse.Body.Close()

	response := common.DecodeResponse[adapterentities.HistoryResponse](t, httpResponse.Body)

	assert.Equal(t, fiber.StatusOK, httpResponse.StatusCode)
	require.Len(t, response.Results, 2)
	assert.Equal(t, "1.00 KB", response.Results[0].Size)
	assert.Equal(t, entities.Positive, response.Results[0].Indicator)
	assert.Equal(t, "Invalid Date", response.Results[1].Analyzed)
	assert.Equal(t, entities.Alert, response.Results[1].Indicator)
	assert.Equal(t, []string{"packer"}, response.Results[1].Categories)
}

func TestGetHistoryFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	analysis := mocks.NewMockAnalysisService(mockCtrl)
	analysis.EXPECT().History(gomock.Any()).Return(nil, &out.TransportError{Err: errors.New("connection refused")})

	httpResponse, err := historyApp(t, analysis).Test(httptest.NewRequest("GET", "/v1/history", http.NoBody), -1)
	require.NoError(t, err)
	defer httpResponse.Body.Close()

	response := common.DecodeResponse[adapterentities.HistoryResponse](t, httpResponse.Body)

	assert.Equal(t, fiber.StatusBadGateway, httpResponse.StatusCode)
	assert.Empty(t, response.Results)
	assert.Equal(t, "An error occurred during analysis", response.Error)
}
