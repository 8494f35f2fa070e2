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
package http

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/keyauth/v2"
)

const (
	submitterLocal = "submitter"

	credentialsHint = "Credentials should have format <alias>:<secret>, where secret must be prehashed with SHA256. " +
		"Recommended method is to generate a secret with openssl, like `openssl rand -hex 32`, then hash it with sha256sum"
)

var errDuplicateAlias = errors.New("alias is already used by another key")

// APIKey is a submitter allowed to use the intake API. Only the SHA256 digest of the secret is kept.
type APIKey struct {
	Alias  string
	Digest []byte
}

// ParseAPIKeys reads HTTPSERVER_AUTHORIZATIONKEYS entries of the form <alias>:<sha256 hex>.
func ParseAPIKeys(entries []string) ([]APIKey, error) {
	keys := make([]APIKey, 0, len(entries))
	aliases := make(map[string]struct{}, len(entries))

	for index, entry := range entries {
		key, err := parseAPIKey(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse access credentials at index %d. %w", index, err)
		}

		if _, ok := aliases[key.Alias]; ok {
			return nil, fmt.Errorf("failed to parse access credentials at index %d. %w", index, errDuplicateAlias)
		}

		aliases[key.Alias] = struct{}{}
		keys = append(keys, key)
	}

	return keys, nil
}

func parseAPIKey(entry string) (APIKey, error) {
	alias, secret, found := strings.Cut(entry, ":")
	if !found || alias == "" || len(secret) != hex.EncodedLen(sha256.Size) {
		return APIKey{}, errors.New(credentialsHint)
	}

	digest, err := hex.DecodeString(secret)
	if err != nil {
		return APIKey{}, errors.New(credentialsHint)
	}

	return APIKey{Alias: alias, Digest: digest}, nil
}

// requiresAPIKey is true for the intake API and the profiler. Healthchecks and metrics stay open.
func requiresAPIKey(ctx *fiber.Ctx) bool {
	path := ctx.OriginalURL()

	return strings.HasPrefix(path, currentVersion) || strings.HasPrefix(path, debugPath)
}

// APIKeyValidator accepts a bearer secret whose digest matches one of keys, and records the
// alias as the submitter of the request.
func APIKeyValidator(keys []APIKey) func(c *fiber.Ctx, secret string) (bool, error) {
	return func(c *fiber.Ctx, secret string) (bool, error) {
		digest := sha256.Sum256([]byte(secret))

		for _, key := range keys {
			if subtle.ConstantTimeCompare(digest[:], key.Digest) == 1 {
				c.Locals(submitterLocal, key.Alias)
				return true, nil
			}
		}

		return false, keyauth.ErrMissingOrMalformedAPIKey
	}
}

// Submitter is the alias of the API key used for the request, empty when keys are disabled.
func Submitter(c *fiber.Ctx) string {
	alias, _ := c.Locals(submitterLocal).(string)
	return alias
}
