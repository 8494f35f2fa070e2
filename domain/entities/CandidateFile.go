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

import (
	"io"
	"strings"
)

// ContentSource opens the bytes behind a file offered by the picker or a drop.
type ContentSource func() (io.ReadCloser, error)

// RawFileMetadata is what the host knows about a file before it is validated.
type RawFileMetadata struct {
	Name      string
	SizeBytes int64
	Content   ContentSource
}

// CandidateFile is a validated file retained for submission. Its bytes live in the
// candidate store under StorageID.
type CandidateFile struct {
	Name      string
	SizeBytes int64
	Extension string
	StorageID string
}

// ExtensionOf returns the lower-cased text after the last dot of name, or "" when there is none.
func ExtensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}

	return strings.ToLower(name[idx+1:])
}
