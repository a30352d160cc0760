// Copyright (C) 2019-2020 Zilliz. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License
// is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
// or implied. See the License for the specific language governing permissions and limitations under the License.

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

func TestDo(t *testing.T) {
	ctx := context.Background()
	n := 0
	err := Do(ctx, func() error {
		n++
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	}, Sleep(time.Millisecond))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAttempts(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		return errors.New("always")
	}, Attempts(2), Sleep(time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestUnrecoverable(t *testing.T) {
	boom := errors.New("boom")
	n := 0
	err := Do(context.Background(), func() error {
		n++
		return Unrecoverable(boom)
	}, Sleep(time.Millisecond))
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, 1, n)
}

func TestRetryErr(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		return merr.WrapErrEncodeFailed("json", errors.New("bad"))
	}, RetryErr(merr.IsRetryableErr), Sleep(time.Millisecond))
	assert.ErrorIs(t, err, merr.ErrEncodeFailed)
	assert.Equal(t, 1, n)

	n = 0
	err = Do(context.Background(), func() error {
		n++
		if n == 1 {
			return merr.WrapErrWriteFailed(errors.New("short write"))
		}
		return nil
	}, RetryErr(merr.IsRetryableErr), Sleep(time.Millisecond))
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaxSleepTime(t *testing.T) {
	c := newDefaultConfig()
	Sleep(time.Second)(c)
	MaxSleepTime(100 * time.Millisecond)(c)
	assert.Equal(t, 2*time.Second, c.maxSleepTime)
}
