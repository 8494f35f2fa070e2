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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("NOTIFICATION_SLACK_WEBHOOK", "https://hooks.slack.com/services/T03XXXXXX/A02AA5AAAA4/invalid")
	t.Setenv("REDIS_PASSWORD", "password")
	t.Setenv("HTTPSERVER_AUTHORIZATIONKEYS", "alias1:key1,alias2:key2")

	cfg, err := LoadConfig()

	assert.NoError(t, err)
	assert.Equal(t, generateSampleConfig(), cfg)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ANALYSIS_URL", "https://scanner.example.com")
	t.Setenv("INTAKE_ALLOWEDEXTENSIONS", "exe,dll")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://scanner.example.com", cfg.Analysis.URL)
	assert.Equal(t, []string{"exe", "dll"}, cfg.Intake.AllowedExtensions)

	base, err := cfg.AnalysisBaseURL()
	assert.NoError(t, err)
	assert.Equal(t, "https://scanner.example.com/api", base)
}

func TestAnalysisBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		analysis Analysis
		expected string
	}{
		{name: "direct url", analysis: Analysis{URL: "http://localhost:8000"}, expected: "http://localhost:8000"},
		{name: "trailing slash", analysis: Analysis{URL: "http://localhost:8000/"}, expected: "http://localhost:8000"},
		{name: "proxied path", analysis: Analysis{URL: "http://localhost:5173", PathPrefix: "/api"}, expected: "http://localhost:5173/api"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := AppConfig{Analysis: tc.analysis}
			base, err := cfg.AnalysisBaseURL()
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, base)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *AppConfig)
	}{
		{name: "missing analysis url", modify: func(c *AppConfig) { c.Analysis.URL = "" }},
		{name: "relative analysis url", modify: func(c *AppConfig) { c.Analysis.URL = "/api" }},
		{name: "non positive max file size", modify: func(c *AppConfig) { c.Intake.MaxFileSize = 0 }},
		{name: "no extensions", modify: func(c *AppConfig) { c.Intake.AllowedExtensions = nil }},
		{name: "unknown timezone", modify: func(c *AppConfig) { c.Intake.Timezone = "Mars/Olympus_Mons" }},
	}

	assert.NoError(t, validateConfig(*NewConfig()))

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.modify(cfg)
			assert.Error(t, validateConfig(*cfg))
		})
	}
}

func generateSampleConfig() AppConfig {
	config := AppConfig{
		Analysis: Analysis{
			URL:        "http://analysis.internal:8000",
			PathPrefix: "/api",
			Timeout:    2 * time.Minute,
		},
		Intake: Intake{
			MaxFileSize:       10485760,
			AllowedExtensions: []string{"exe", "dll", "sys", "bat"},
			Timezone:          "UTC",
		},
		Redis: Redis{
			URL:      "",
			Password: "password",
			UseTLS:   false,
			Key:      "analysis",
			Minute:   4,
			Hour:     20,
		},
		Notification: Notification{
			Slack: Slack{
				ChannelID: "XXXXXXXXX",
				Webhook:   "https://hooks.slack.com/services/T03XXXXXX/A02AA5AAAA4/invalid",
			},
		},
		HTTPServer: HTTPServer{
			AuthorizationKeys: []string{"alias1:key1", "alias2:key2"},
			Port:              3000,
			Profiler:          false,
			Metrics:           true,
			Tracing:           false,
			MaxRequestSize:    52428800,
		},
		Logging: Logging{
			Debug:    false,
			Encoding: "json",
		},
	}

	return config
}
