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

package out

import (
	"errors"
	"fmt"
	"io"
	"malscan-intake/common"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const (
	maxSizeForMemory     = 1 * 1024 * 1024
	defaultDirPermission = 0755
	candidateFileName    = "candidate"
)

var (
	ErrStorageNotFound  = errors.New("storage not found")
	ErrInvalidStorageID = errors.New("storage id must be a uuid")
)

type candidateEntry struct {
	fs    afero.Fs
	name  string
	usage int64
}

// CandidateStorage keeps candidate bytes in memory, or on disk once they are larger than
// maxSizeForMemory. Every candidate lives in its own sandbox directory named after its storage id.
type CandidateStorage struct {
	entries             map[string]*candidateEntry
	maxStorageUsage     int64
	currentStorageUsage int64
	memFs               afero.Fs
	diskFs              afero.Fs
	lock                sync.RWMutex
}

func NewCandidateStorage(maxStorageUsage int64) *CandidateStorage {
	return NewCandidateStorageWithFs(maxStorageUsage, afero.NewMemMapFs(), afero.NewOsFs())
}

func NewCandidateStorageWithFs(maxStorageUsage int64, memFs, diskFs afero.Fs) *CandidateStorage {
	return &CandidateStorage{
		entries:         make(map[string]*candidateEntry),
		maxStorageUsage: maxStorageUsage,
		memFs:           memFs,
		diskFs:          diskFs,
	}
}

func (c *CandidateStorage) Put(storageID, name string, size int64, content io.Reader) error {
	// The id becomes a directory name, so anything but a uuid could point outside /tmp.
	if !common.IsValidUUID(storageID) {
		return fmt.Errorf("failed to store %s. %w", filepath.Base(name), ErrInvalidStorageID)
	}

	base := c.memFs
	if size > maxSizeForMemory {
		base = c.diskFs
	}

	// Enforcing base directory, because we don't want any file to escape the sandbox directory
	rootDir := "/tmp/" + storageID
	if err := base.MkdirAll(rootDir, defaultDirPermission); err != nil {
		return fmt.Errorf("failed to create storage. %w", err)
	}

	entry := &candidateEntry{fs: afero.NewBasePathFs(base, rootDir), name: candidateFileName}

	c.lock.Lock()
	if _, ok := c.entries[storageID]; ok {
		c.lock.Unlock()
		return fmt.Errorf("storage %s already in use", storageID)
	}
	c.entries[storageID] = entry
	c.lock.Unlock()

	written, err := c.write(entry, content)
	if err == nil {
		err = c.changeUsage(storageID, written)
	}

	if err != nil {
		if discardErr := c.Discard(storageID); discardErr != nil {
			return fmt.Errorf("failed to store %s. %w (cleanup: %s)", filepath.Base(name), err, discardErr)
		}

		return fmt.Errorf("failed to store %s. %w", filepath.Base(name), err)
	}

	return nil
}

func (c *CandidateStorage) write(entry *candidateEntry, content io.Reader) (int64, error) {
	file, err := entry.fs.Create(entry.name)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return io.Copy(file, content)
}

func (c *CandidateStorage) changeUsage(storageID string, delta int64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	entry, ok := c.entries[storageID]
	if !ok {
		return ErrStorageNotFound
	}

	if c.currentStorageUsage+delta > c.maxStorageUsage {
		return fmt.Errorf("max storage consumed")
	}

	c.currentStorageUsage += delta
	entry.usage += delta

	return nil
}

func (c *CandidateStorage) Open(storageID string) (io.ReadCloser, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	entry, ok := c.entries[storageID]
	if !ok {
		return nil, ErrStorageNotFound
	}

	return entry.fs.Open(entry.name)
}

func (c *CandidateStorage) Discard(storageID string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	entry, ok := c.entries[storageID]
	if !ok {
		return ErrStorageNotFound
	}

	delete(c.entries, storageID)
	c.currentStorageUsage -= entry.usage

	return entry.fs.RemoveAll("")
}

// Usage is the number of bytes currently retained.
func (c *CandidateStorage) Usage() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.currentStorageUsage
}
