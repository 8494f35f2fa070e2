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

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewZapLogger(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		wantErr  bool
	}{
		{name: "default encoding", encoding: ""},
		{name: "json", encoding: JSONEncoding},
		{name: "console", encoding: ConsoleEncoding},
		{name: "unknown encoding", encoding: "xml", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewZapLogger(true, tc.encoding)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
