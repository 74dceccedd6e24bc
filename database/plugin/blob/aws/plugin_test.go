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

package aws

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/blinklabs-io/circulard/database/plugin/blob"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromCmdlineOptions(t *testing.T) {
	original := cmdlineOptions
	t.Cleanup(func() { cmdlineOptions = original })

	cmdlineOptions.location = "s3://test-bucket/test-prefix"
	cmdlineOptions.region = "us-east-1"
	p := NewFromCmdlineOptions()
	store, ok := p.(*BlobStoreS3)
	require.True(t, ok, "expected *BlobStoreS3, got %T", p)
	assert.Equal(t, "test-bucket", store.Bucket())
	assert.Equal(t, "test-prefix/", store.location.Prefix)
	assert.Equal(t, "us-east-1", store.region)

	cmdlineOptions.location = ""
	p = NewFromCmdlineOptions()
	require.IsType(t, &plugin.ErrorPlugin{}, p)
	assert.ErrorContains(t, p.Start(), "s3")
}

func TestNewFromURL(t *testing.T) {
	_, err := NewFromURL("bucket", nil, nil)
	require.Error(t, err)
	_, err = NewFromURL("s3://", nil, nil)
	require.Error(t, err)

	store, err := NewFromURL("s3://circulars/archive/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "circulars", store.Bucket())
	assert.Equal(t, "archive/x.json", store.location.ObjectName("x.json"))
	assert.Equal(t, defaultTimeout, store.timeout)
}

func TestOptions(t *testing.T) {
	store := New(
		WithLocation(blob.Location{Bucket: "b", Prefix: "/p/"}),
		WithEndpoint("http://localhost:9000"),
		WithTimeout(time.Second),
	)
	assert.Equal(t, "http://localhost:9000", store.endpoint)
	assert.Equal(t, time.Second, store.timeout)
	assert.Equal(t, "p/", store.location.Prefix)
}

func TestOperationsBeforeStart(t *testing.T) {
	store := New(WithLocation(blob.Location{Bucket: "b"}))
	ctx := context.Background()
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, types.ErrBlobStoreUnavailable)
	assert.ErrorIs(t, store.Set(ctx, "k", nil), types.ErrBlobStoreUnavailable)
	assert.ErrorIs(t, store.Delete(ctx, "k"), types.ErrBlobStoreUnavailable)
	_, err = store.Keys(ctx, "")
	assert.ErrorIs(t, err, types.ErrBlobStoreUnavailable)
}

func TestStartRequiresBucket(t *testing.T) {
	assert.ErrorContains(t, New().Start(), "bucket not set")
}
