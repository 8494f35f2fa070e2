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
	"malscan-intake/domain/entities"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeRule(t *testing.T) {
	validator := NewDefaultFileValidator()

	tests := []struct {
		name     string
		size     int64
		accepted bool
	}{
		{name: "empty file", size: 0, accepted: true},
		{name: "small file", size: 4096, accepted: true},
		{name: "exactly at the limit", size: 10 * 1024 * 1024, accepted: true},
		{name: "one byte over the limit", size: 10*1024*1024 + 1, accepted: false},
		{name: "far over the limit", size: 1 << 40, accepted: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			outcome := validator.Validate(entities.RawFileMetadata{Name: "sample.exe", SizeBytes: tc.size})

			assert.Equal(t, tc.accepted, outcome.IsAccepted())
			if !tc.accepted {
				assert.Equal(t, entities.FileTooLarge, outcome.Reason)
			}
		})
	}
}

func TestExtensionRule(t *testing.T) {
	validator := NewDefaultFileValidator()

	tests := []struct {
		name      string
		filename  string
		accepted  bool
		extension string
	}{
		{name: "lower case", filename: "a.exe", accepted: true, extension: "exe"},
		{name: "upper case", filename: "a.EXE", accepted: true, extension: "exe"},
		{name: "mixed case", filename: "a.Exe", accepted: true, extension: "exe"},
		{name: "dll", filename: "kernel32.dll", accepted: true, extension: "dll"},
		{name: "sys", filename: "driver.SYS", accepted: true, extension: "sys"},
		{name: "bat", filename: "install.bat", accepted: true, extension: "bat"},
		{name: "last dot wins", filename: "invoice.pdf.exe", accepted: true, extension: "exe"},
		{name: "text file", filename: "a.txt", accepted: false},
		{name: "no dot", filename: "malware", accepted: false},
		{name: "trailing dot", filename: "malware.", accepted: false},
		{name: "disguised executable", filename: "setup.exe.txt", accepted: false},
		{name: "empty name", filename: "", accepted: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			outcome := validator.Validate(entities.RawFileMetadata{Name: tc.filename, SizeBytes: 10})

			assert.Equal(t, tc.accepted, outcome.IsAccepted())
			if tc.accepted {
				assert.Equal(t, tc.filename, outcome.File.Name)
				assert.Equal(t, tc.extension, outcome.File.Extension)
				assert.Equal(t, int64(10), outcome.File.SizeBytes)
			} else {
				assert.Equal(t, entities.InvalidExtension, outcome.Reason)
			}
		})
	}
}

func TestSizeRuleRunsFirst(t *testing.T) {
	outcome := NewDefaultFileValidator().Validate(entities.RawFileMetadata{Name: "notes.txt", SizeBytes: 20 * 1024 * 1024})

	assert.False(t, outcome.IsAccepted())
	assert.Equal(t, entities.FileTooLarge, outcome.Reason)
}

func TestCustomRules(t *testing.T) {
	validator := NewFileValidator(1024, []string{".MSI", "exe", "exe", ""})

	assert.True(t, validator.Validate(entities.RawFileMetadata{Name: "setup.msi", SizeBytes: 1024}).IsAccepted())
	assert.False(t, validator.Validate(entities.RawFileMetadata{Name: "setup.dll", SizeBytes: 1}).IsAccepted())
	assert.Equal(t, "Invalid file type. Please upload .msi or .exe files only.", validator.Describe(entities.InvalidExtension))
	assert.Equal(t, "File size too large. Maximum size is 1.00 KB.", validator.Describe(entities.FileTooLarge))
}

func TestDescribe(t *testing.T) {
	validator := NewDefaultFileValidator()

	assert.Equal(t, "File size too large. Maximum size is 10MB.", validator.Describe(entities.FileTooLarge))
	assert.Equal(t, "Invalid file type. Please upload .exe, .dll, .sys or .bat files only.", validator.Describe(entities.InvalidExtension))
}
