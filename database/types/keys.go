// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import "strings"

const (
	ArchiveBlobKeyPrefix = "archive/"
	ArchiveBlobKeySuffix = ".json"
)

// ArchiveBlobKey returns the blob key holding the published snapshot of a circular
func ArchiveBlobKey(circularID string) string {
	return ArchiveBlobKeyPrefix + circularID + ArchiveBlobKeySuffix
}

// CircularIDFromArchiveKey is the inverse of ArchiveBlobKey
func CircularIDFromArchiveKey(key string) (string, bool) {
	if !strings.HasPrefix(key, ArchiveBlobKeyPrefix) ||
		!strings.HasSuffix(key, ArchiveBlobKeySuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, ArchiveBlobKeyPrefix), ArchiveBlobKeySuffix)
	return id, id != ""
}
