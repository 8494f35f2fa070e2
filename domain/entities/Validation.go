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

type ValidationError int8

const (
	FileTooLarge ValidationError = iota + 1
	InvalidExtension
)

func (v ValidationError) String() string {
	switch v {
	case FileTooLarge:
		return "file_too_large"
	case InvalidExtension:
		return "invalid_extension"
	default:
		return "unknown"
	}
}

// ValidationOutcome is either Accepted (Reason is zero) or Rejected.
type ValidationOutcome struct {
	File   CandidateFile
	Reason ValidationError
}

func Accepted(file CandidateFile) ValidationOutcome {
	return ValidationOutcome{File: file}
}

func Rejected(reason ValidationError) ValidationOutcome {
	return ValidationOutcome{Reason: reason}
}

func (o ValidationOutcome) IsAccepted() bool {
	return o.Reason == 0
}
