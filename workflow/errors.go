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

package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies workflow failures so that callers can map them onto their
// own transport without string matching
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindInvalidInput
	KindConflict
	KindConfiguration
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidInput:
		return "InvalidInput"
	case KindConflict:
		return "Conflict"
	case KindConfiguration:
		return "ConfigurationError"
	case KindUnauthenticated:
		return "Unauthenticated"
	default:
		return "Internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
}

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of message
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidState    = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrConfiguration   = &Error{Kind: KindConfiguration, Message: "configuration error"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}
)

// ErrStaleRecord is returned by a CircularStore when a replace loses a
// compare-and-swap race
var ErrStaleRecord = errors.New("circular was modified concurrently")

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
