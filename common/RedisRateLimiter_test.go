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

package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis returns an address nothing listens on.
func unreachableRedis(t *testing.T) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	return addr
}

func TestRateLimiterFailsClosed(t *testing.T) {
	table := []struct {
		name   string
		config RateLimitConfig
	}{
		{name: "minute window", config: RateLimitConfig{Minute: 4, Key: "analysis"}},
		{name: "hour window", config: RateLimitConfig{Hour: 20, Key: "analysis"}},
		{name: "both windows", config: RateLimitConfig{Minute: 4, Hour: 20, Key: "analysis"}},
	}

	for _, v := range table {
		v := v
		t.Run(v.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			limiter := NewRateLimiter(unreachableRedis(t), "", false, v.config)

			assert.False(t, limiter.IsRequestAllowed(ctx))
		})
	}
}

func TestRateLimiterWithoutWindows(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// No window configured, redis is never asked.
	limiter := NewRateLimiter(unreachableRedis(t), "", false, RateLimitConfig{Key: "analysis"})

	assert.True(t, limiter.IsRequestAllowed(ctx))
}

func TestUnlimitedRateLimiter(t *testing.T) {
	assert.True(t, UnlimitedRateLimiter{}.IsRequestAllowed(context.Background()))
}
