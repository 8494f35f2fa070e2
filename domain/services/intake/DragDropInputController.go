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
	"fmt"
	"malscan-intake/domain/entities"
)

type DragKind int8

const (
	DragEnter DragKind = iota + 1
	DragOver
	DragLeave
)

func ParseDragKind(kind string) (DragKind, error) {
	switch kind {
	case "enter":
		return DragEnter, nil
	case "over":
		return DragOver, nil
	case "leave":
		return DragLeave, nil
	default:
		return 0, fmt.Errorf("unknown drag event %q", kind)
	}
}

// State only drives the drop zone highlight. It never influences validation.
type State struct {
	DragActive bool
}

func (s State) Drag(kind DragKind) State {
	switch kind {
	case DragEnter, DragOver:
		s.DragActive = true
	case DragLeave:
		s.DragActive = false
	}

	return s
}

// Drop ends the drag and hands back the first dropped file, if any. Extra files are ignored.
func (s State) Drop(files []entities.RawFileMetadata) (State, entities.RawFileMetadata, bool) {
	s.DragActive = false
	file, ok := First(files)

	return s, file, ok
}

// First is the picker path: no drag state involved, only index 0 counts.
func First(files []entities.RawFileMetadata) (entities.RawFileMetadata, bool) {
	if len(files) == 0 {
		return entities.RawFileMetadata{}, false
	}

	return files[0], true
}
