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

package cmd

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeSample(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func runAnalyze(t *testing.T, path string) (map[string]interface{}, error) {
	t.Helper()

	t.Setenv("ANALYSIS_URL", "http://analysis.test")

	output := &bytes.Buffer{}
	rootCmd.SetOut(output)
	rootCmd.SetArgs([]string{"analyze", path, "--log-encoding", "console"})

	err := Execute()

	var printed map[string]interface{}
	if output.Len() > 0 {
		require.NoError(t, yaml.Unmarshal(output.Bytes(), &printed))
	}

	return printed, err
}

func TestAnalyzeCommand(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "http://analysis.test/api/analyze",
		httpmock.NewStringResponder(http.StatusOK, `{"hash":"abc","file_size":2,"timestamp":"2024-03-01T12:00:00Z","status":"Clean","recommendations":"None"}`))

	printed, err := runAnalyze(t, writeSample(t, "sample.exe", []byte("MZ")))

	require.NoError(t, err)
	assert.Equal(t, "succeeded", printed["state"])

	result, ok := printed["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc", result["hash"])
	assert.Equal(t, "Clean", result["status"])
}

func TestAnalyzeCommandServerError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "http://analysis.test/api/analyze",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "engine unavailable"))

	printed, err := runAnalyze(t, writeSample(t, "sample.dll", []byte("MZ")))

	assert.ErrorIs(t, err, errAnalysisFailed)
	assert.Equal(t, "failed", printed["state"])
	assert.Equal(t, "engine unavailable", printed["error"])
}

func TestAnalyzeCommandRejectedFile(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	printed, err := runAnalyze(t, writeSample(t, "notes.txt", []byte("hello")))

	assert.ErrorIs(t, err, errAnalysisFailed)
	assert.Equal(t, "idle", printed["state"])
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestAnalyzeCommandMissingFile(t *testing.T) {
	_, err := runAnalyze(t, filepath.Join(t.TempDir(), "missing.exe"))

	assert.Error(t, err)
}
