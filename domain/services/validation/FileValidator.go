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

package validation

import (
	"fmt"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/services/format"
	"strings"
)

const (
	DefaultMaxFileSize int64 = 10 * 1024 * 1024
	megabyte           int64 = 1024 * 1024
)

//nolint:gochecknoglobals
var DefaultExtensions = []string{"exe", "dll", "sys", "bat"}

// FileValidator gatekeeps a candidate on size and extension only, it never looks at content.
type FileValidator struct {
	maxFileSize int64
	extensions  []string
	allowed     map[string]struct{}
}

func NewFileValidator(maxFileSize int64, extensions []string) *FileValidator {
	allowed := make(map[string]struct{}, len(extensions))
	normalized := make([]string, 0, len(extensions))

	for _, extension := range extensions {
		extension = strings.ToLower(strings.TrimPrefix(extension, "."))
		if _, ok := allowed[extension]; ok || extension == "" {
			continue
		}

		allowed[extension] = struct{}{}
		normalized = append(normalized, extension)
	}

	return &FileValidator{maxFileSize: maxFileSize, extensions: normalized, allowed: allowed}
}

func NewDefaultFileValidator() *FileValidator {
	return NewFileValidator(DefaultMaxFileSize, DefaultExtensions)
}

// Validate applies the size rule and then the extension rule, first failure wins.
func (v *FileValidator) Validate(raw entities.RawFileMetadata) entities.ValidationOutcome {
	if raw.SizeBytes > v.maxFileSize {
		return entities.Rejected(entities.FileTooLarge)
	}

	extension := entities.ExtensionOf(raw.Name)
	if _, ok := v.allowed[extension]; !ok {
		return entities.Rejected(entities.InvalidExtension)
	}

	return entities.Accepted(entities.CandidateFile{
		Name:      raw.Name,
		SizeBytes: raw.SizeBytes,
		Extension: extension,
	})
}

// Describe is the message shown to the user for a rejection.
func (v *FileValidator) Describe(reason entities.ValidationError) string {
	switch reason {
	case entities.FileTooLarge:
		return fmt.Sprintf("File size too large. Maximum size is %s.", v.describeLimit())
	case entities.InvalidExtension:
		return fmt.Sprintf("Invalid file type. Please upload %s files only.", v.describeExtensions())
	default:
		return "Invalid file."
	}
}

func (v *FileValidator) describeLimit() string {
	if v.maxFileSize > 0 && v.maxFileSize%megabyte == 0 {
		return fmt.Sprintf("%dMB", v.maxFileSize/megabyte)
	}

	return format.FormatSize(v.maxFileSize)
}

func (v *FileValidator) describeExtensions() string {
	dotted := make([]string, 0, len(v.extensions))
	for _, extension := range v.extensions {
		dotted = append(dotted, "."+extension)
	}

	switch len(dotted) {
	case 0:
		return "no"
	case 1:
		return dotted[0]
	default:
		return strings.Join(dotted[:len(dotted)-1], ", ") + " or " + dotted[len(dotted)-1]
	}
}
