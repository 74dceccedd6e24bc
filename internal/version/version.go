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

package version

import (
	"fmt"
)

// Version and CommitHash are set with -ldflags at build time
var (
	Version    string
	CommitHash string
)

// GetVersionString returns the release version, or "devel" for local builds,
// followed by the commit when known
func GetVersionString() string {
	v := Version
	if v == "" {
		v = "devel"
	}
	if CommitHash == "" {
		return v
	}
	return fmt.Sprintf("%s (commit %s)", v, CommitHash)
}
