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
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	firstID  = "6f1c2b0e-3a9d-4c57-8e21-0b7d9a4f5c13"
	secondID = "a2e4f6d8-1b3c-4e5f-9a7b-c8d0e2f4a6b8"
)

func newTestStorage(t *testing.T, maxStorageUsage int64) (*CandidateStorage, afero.Fs, afero.Fs) {
	memFs := afero.NewMemMapFs()
	diskFs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())

	return NewCandidateStorageWithFs(maxStorageUsage, memFs, diskFs), memFs, diskFs
}

func TestReadWriteCandidate(t *testing.T) {
	table := []struct {
		storageType string
		content     []byte
		onDisk      bool
	}{
		{storageType: "memory", content: []byte("MZ small payload"), onDisk: false},
		{storageType: "disk", content: bytes.Repeat([]byte{0x90}, maxSizeForMemory+1), onDisk: true},
	}

	for _, v := range table {
		v := v
		t.Run(v.storageType, func(t *testing.T) {
			storage, memFs, diskFs := newTestStorage(t, 4*1024*1024)

			err := storage.Put(firstID, "sample.exe", int64(len(v.content)), bytes.NewReader(v.content))
			require.NoError(t, err)

			inMemory, _ := afero.Exists(memFs, "/tmp/"+firstID+"/candidate")
			onDisk, _ := afero.Exists(diskFs, "/tmp/"+firstID+"/candidate")
			assert.Equal(t, !v.onDisk, inMemory)
			assert.Equal(t, v.onDisk, onDisk)

			reader, err := storage.Open(firstID)
			require.NoError(t, err)

			stored, err := io.ReadAll(reader)
			require.NoError(t, err)
			require.NoError(t, reader.Close())

			assert.Equal(t, v.content, stored)
			assert.Equal(t, int64(len(v.content)), storage.Usage())

			require.NoError(t, storage.Discard(firstID))
			assert.Equal(t, int64(0), storage.Usage())

			_, err = storage.Open(firstID)
			assert.ErrorIs(t, err, ErrStorageNotFound)
		})
	}
}

func TestCandidateStorageQuota(t *testing.T) {
	storage, _, _ := newTestStorage(t, 16)

	require.NoError(t, storage.Put(firstID, "a.exe", 10, strings.NewReader("0123456789")))

	err := storage.Put(secondID, "b.exe", 10, strings.NewReader("0123456789"))
	assert.Error(t, err)

	_, err = storage.Open(secondID)
	assert.ErrorIs(t, err, ErrStorageNotFound)
	assert.Equal(t, int64(10), storage.Usage())
}

func TestCandidateStorageDuplicateID(t *testing.T) {
	storage, _, _ := newTestStorage(t, 1024)

	require.NoError(t, storage.Put(firstID, "a.exe", 1, strings.NewReader("a")))
	assert.Error(t, storage.Put(firstID, "b.exe", 1, strings.NewReader("b")))

	reader, err := storage.Open(firstID)
	require.NoError(t, err)
	defer reader.Close()

	stored, _ := io.ReadAll(reader)
	assert.Equal(t, "a", string(stored))
}

func TestDiscardUnknownStorage(t *testing.T) {
	storage, _, _ := newTestStorage(t, 1024)

	assert.ErrorIs(t, storage.Discard("missing"), ErrStorageNotFound)
}

func TestPutRejectsInvalidStorageID(t *testing.T) {
	storage, memFs, _ := newTestStorage(t, 1024)

	for _, storageID := range []string{"", "id-1", "../../etc", firstID + "/.."} {
		err := storage.Put(storageID, "a.exe", 1, strings.NewReader("a"))
		assert.ErrorIs(t, err, ErrInvalidStorageID, storageID)
	}

	entries, err := afero.ReadDir(memFs, "/")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(0), storage.Usage())
}
