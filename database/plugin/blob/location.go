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

package blob

import (
	"fmt"
	"net/url"
	"strings"
)

// Location names a bucket and an object name prefix in a cloud blob store. It
// is written as scheme://bucket/prefix
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses raw, which must use the given scheme
func ParseLocation(scheme string, raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse %s location: %w", scheme, err)
	}
	if u.Scheme != scheme {
		return Location{}, fmt.Errorf(
			"%s location %q: expected %s://<bucket>[/prefix]",
			scheme,
			raw,
			scheme,
		)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("%s location %q: bucket not set", scheme, raw)
	}
	return Location{Bucket: u.Host, Prefix: u.Path}.Normalize(), nil
}

// Normalize strips surrounding slashes from the prefix and gives a non-empty
// prefix exactly one trailing slash
func (l Location) Normalize() Location {
	l.Prefix = strings.Trim(l.Prefix, "/")
	if l.Prefix != "" {
		l.Prefix += "/"
	}
	return l
}

// ObjectName maps a blob key to the object name in the bucket
func (l Location) ObjectName(key string) string {
	return l.Prefix + key
}

// Key maps an object name back to the blob key
func (l Location) Key(objectName string) string {
	return strings.TrimPrefix(objectName, l.Prefix)
}

func (l Location) String() string {
	return l.Bucket + "/" + l.Prefix
}
