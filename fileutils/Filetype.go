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

package fileutils

import (
	"bytes"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeApplicationType = "application"
	defaultContentType  = "application/octet-stream"
)

//nolint:gochecknoglobals
var once sync.Once

func prefix(preffix []byte) func([]byte, uint32) bool {
	return func(raw []byte, _ uint32) bool {
		if len(raw) < len(preffix) {
			return false
		}

		return bytes.Equal(raw[:len(preffix)], preffix)
	}
}

func registerAdditionalTypes() {
	// Support for Eicar
	mimetype.Extend(prefix([]byte{0x58, 0x35, 0x4f, 0x21}), "application/x-eicar", "")

	// Support for MS-DOS batch files, which mimetype reports as plain text
	mimetype.Lookup("text/plain").Extend(prefix([]byte("@echo off")), "application/x-bat", ".bat")
}

// DetectContentType sniffs the MIME type of a file from its leading bytes. Content that is
// not recognised is reported as application/octet-stream, never as text.
func DetectContentType(head []byte) string {
	once.Do(registerAdditionalTypes)

	if len(head) == 0 {
		return defaultContentType
	}

	mtype := mimetype.Detect(head)
	if mtype.Is("text/plain") {
		return defaultContentType
	}

	// Drop parameters such as charset.
	return strings.SplitN(mtype.String(), ";", 2)[0]
}

// IsExecutable reports whether the leading bytes belong to a native binary or the EICAR test file.
func IsExecutable(head []byte) bool {
	identifiedType := strings.Split(DetectContentType(head), "/")

	return identifiedType[0] == mimeApplicationType &&
		(identifiedType[1] == "x-elf" ||
			identifiedType[1] == "vnd.microsoft.portable-executable" ||
			identifiedType[1] == "x-msdownload" ||
			identifiedType[1] == "x-executable" ||
			identifiedType[1] == "x-sharedlib" ||
			identifiedType[1] == "x-mach-binary" ||
			identifiedType[1] == "x-eicar")
}
