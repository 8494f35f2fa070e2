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
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 3000
	defaultMaxRequestSize = 52428800
	defaultMaxFileSize    = 10 * 1024 * 1024
	defaultAnalysisURL    = "http://localhost:8000"
	defaultLogEncoding    = "json"
	defaultRateLimitKey   = "analysis"
)

type AppConfig struct {
	Analysis     Analysis
	Intake       Intake
	Redis        Redis
	Notification Notification
	HTTPServer   HTTPServer
	Logging      Logging
}

type HTTPServer struct {
	AuthorizationKeys []string
	Profiler          bool
	Metrics           bool
	Tracing           bool
	MaxRequestSize    int
	Port              int
}

// Analysis points at the remote analysis service. PathPrefix is joined to URL, which allows
// talking to the service through a reverse proxy that mounts it under e.g. /api.
type Analysis struct {
	URL        string
	PathPrefix string
	Timeout    time.Duration
}

type Intake struct {
	MaxFileSize       int64
	AllowedExtensions []string
	// Timezone used to render verdict timestamps. Empty means the host's local zone.
	Timezone string
}

// Redis backs the optional submission rate limiter. Empty URL disables it.
type Redis struct {
	URL      string
	Password string
	UseTLS   bool
	Key      string
	Minute   int
	Hour     int
}

type Notification struct {
	Slack Slack
}

type Slack struct {
	ChannelID string
	Webhook   string
}

type Logging struct {
	Debug    bool
	Encoding string
}

func NewConfig() *AppConfig {
	return &AppConfig{
		Analysis: Analysis{
			URL: defaultAnalysisURL,
		},
		Intake: Intake{
			MaxFileSize:       defaultMaxFileSize,
			AllowedExtensions: []string{"exe", "dll", "sys", "bat"},
		},
		Redis: Redis{
			Key: defaultRateLimitKey,
		},
		HTTPServer: HTTPServer{
			Port:           defaultPort,
			MaxRequestSize: defaultMaxRequestSize,
		},
		Logging: Logging{
			Encoding: defaultLogEncoding,
		},
	}
}

// AnalysisBaseURL is the URL every analysis endpoint path is appended to.
func (c AppConfig) AnalysisBaseURL() (string, error) {
	if c.Analysis.PathPrefix == "" {
		return strings.TrimSuffix(c.Analysis.URL, "/"), nil
	}

	return url.JoinPath(c.Analysis.URL, c.Analysis.PathPrefix)
}

// Location resolves Intake.Timezone.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Intake.Timezone == "" {
		return time.Local, nil
	}

	return time.LoadLocation(c.Intake.Timezone)
}

func validateConfig(config AppConfig) error {
	if config.Analysis.URL == "" {
		return fmt.Errorf("no analysis URL specified")
	}

	parsed, err := url.Parse(config.Analysis.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("analysis URL must be absolute, got %q", config.Analysis.URL)
	}

	if config.Intake.MaxFileSize <= 0 {
		return fmt.Errorf("intake max file size must be positive")
	}

	if len(config.Intake.AllowedExtensions) == 0 {
		return fmt.Errorf("no allowed extensions specified")
	}

	if _, err := config.Location(); err != nil {
		return fmt.Errorf("invalid intake timezone. %w", err)
	}

	return nil
}

// see supershal approach https://github.com/spf13/viper/issues/188
func LoadConfig() (AppConfig, error) {
	const keyDelimiter = "/"
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	// set default values in viper.
	// Viper needs to know if a key exists in order to override it.
	// https://github.com/spf13/viper/issues/188
	b, err := yaml.Marshal(NewConfig())
	if err != nil {
		return AppConfig{}, err
	}

	defaultConfig := bytes.NewReader(b)

	v.AddConfigPath(os.Getenv("CONFIG_DIR"))
	v.AddConfigPath("../resources/")
	v.AddConfigPath(".")
	v.AddConfigPath("/app/config/")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.MergeConfig(defaultConfig); err != nil {
		return AppConfig{}, err
	}

	// A missing file is fine, defaults and env are enough to run against a local service.
	if err := v.MergeInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return AppConfig{}, err
		}
	}

	// tell viper to overwrite env variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	// refresh configuration with all merged values
	config := AppConfig{}
	err = v.Unmarshal(&config)

	if err != nil {
		return AppConfig{}, err
	}

	err = validateConfig(config)
	if err != nil {
		return AppConfig{}, err
	}

	return config, nil
}
