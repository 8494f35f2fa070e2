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

package intake

import (
	"malscan-intake/domain/entities"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragTransitions(t *testing.T) {
	tests := []struct {
		name     string
		initial  bool
		kind     DragKind
		expected bool
	}{
		{name: "enter activates", initial: false, kind: DragEnter, expected: true},
		{name: "over activates", initial: false, kind: DragOver, expected: true},
		{name: "over keeps active", initial: true, kind: DragOver, expected: true},
		{name: "leave deactivates", initial: true, kind: DragLeave, expected: false},
		{name: "leave when inactive", initial: false, kind: DragLeave, expected: false},
		{name: "unknown kind is ignored", initial: true, kind: DragKind(42), expected: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			state := State{DragActive: tc.initial}.Drag(tc.kind)
			assert.Equal(t, tc.expected, state.DragActive)
		})
	}
}

func TestDropForwardsFirstFile(t *testing.T) {
	files := []entities.RawFileMetadata{
		{Name: "first.exe", SizeBytes: 1},
		{Name: "second.dll", SizeBytes: 2},
	}

	state, file, ok := State{DragActive: true}.Drop(files)

	require.True(t, ok)
	assert.False(t, state.DragActive)
	assert.Equal(t, "first.exe", file.Name)
}

func TestEmptyDrop(t *testing.T) {
	state, _, ok := State{DragActive: true}.Drop(nil)

	assert.False(t, ok)
	assert.False(t, state.DragActive)
}

func TestFirst(t *testing.T) {
	_, ok := First([]entities.RawFileMetadata{})
	assert.False(t, ok)

	file, ok := First([]entities.RawFileMetadata{{Name: "a.sys"}, {Name: "b.sys"}})
	assert.True(t, ok)
	assert.Equal(t, "a.sys", file.Name)
}

func TestParseDragKind(t *testing.T) {
	for input, expected := range map[string]DragKind{"enter": DragEnter, "over": DragOver, "leave": DragLeave} {
		kind, err := ParseDragKind(input)
		assert.NoError(t, err)
		assert.Equal(t, expected, kind)
	}

	_, err := ParseDragKind("drop")
	assert.Error(t, err)
}
