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

package sqlite

import (
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewWithOptions(t *testing.T) {
	m := NewWithOptions()
	assert.Equal(t, DefaultMaxConnections, m.maxConnections)
	assert.Equal(t, DefaultVacuumInterval, m.vacuumInterval)
	assert.NotNil(t, m.logger)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m = NewWithOptions(
		WithDataDir("/tmp/test"),
		WithLogger(logger),
		WithPromRegistry(reg),
		WithMaxConnections(10),
		WithVacuumInterval(time.Minute),
	)
	assert.Equal(t, "/tmp/test", m.dataDir)
	assert.Same(t, logger, m.logger)
	assert.Same(t, reg, m.promRegistry)
	assert.Equal(t, 10, m.maxConnections)
	assert.Equal(t, time.Minute, m.vacuumInterval)
}

func TestDSN(t *testing.T) {
	dsn, err := NewWithOptions().dsn()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:circulard-"))
	assert.Contains(t, dsn, "mode=memory")
	other, err := NewWithOptions().dsn()
	require.NoError(t, err)
	assert.NotEqual(t, dsn, other)

	dir := filepath.Join(t.TempDir(), "nested")
	dsn, err = NewWithOptions(WithDataDir(dir)).dsn()
	require.NoError(t, err)
	assert.DirExists(t, dir)
	path, query, ok := strings.Cut(dsn, "?")
	require.True(t, ok)
	assert.Equal(t, "file:"+filepath.Join(dir, "metadata.sqlite"), path)
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Contains(t, values["_pragma"], "journal_mode(WAL)")
	assert.Contains(t, values["_pragma"], "busy_timeout(5000)")
}

func TestVacuumLoopStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	m := NewWithOptions(
		WithDataDir(t.TempDir()),
		WithVacuumInterval(10*time.Millisecond),
	)
	require.NoError(t, m.Start())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
