// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package merr

import (
	"context"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrFieldNotFound("title")
	errors.Wrap(err, "failed to resolve target field")
	s.ErrorIs(err, ErrFieldNotFound)
	s.Equal(Code(ErrFieldNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(errUnexpected.errCode, Code(errors.New("plain")))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newSerializerError("new error", ErrFieldNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrFieldNotFound))
}

func (s *ErrSuite) TestWrap() {
	// Handler 相关错误。
	s.ErrorIs(WrapErrNotImplemented("HandleExtra"), ErrNotImplemented)
	s.ErrorIs(WrapErrFieldKindMismatch("author", model.KindForeignKey, struct{}{}), ErrFieldKindMismatch)
	s.ErrorIs(WrapErrRelationKindUnknown("book_set", model.KindDirect), ErrRelationKindUnknown)

	// Field 相关错误。
	s.ErrorIs(WrapErrFieldNotFound("meta", "failed to get field"), ErrFieldNotFound)

	// 参数相关错误。
	s.ErrorIs(WrapErrParameterInvalid("list or mapping", "int", "relations"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad %s", "relations"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterMissing("stream"), ErrParameterMissing)

	// 编码与输出相关错误。
	s.ErrorIs(WrapErrFormatUnsupported("xml", "json", "yaml"), ErrFormatUnsupported)
	s.ErrorIs(WrapErrEncodeFailed("json", errors.New("boom")), ErrEncodeFailed)
	s.ErrorIs(WrapErrCompressFailed(errors.New("boom")), ErrCompressFailed)
	s.ErrorIs(WrapErrWriteFailed(errors.New("boom")), ErrWriteFailed)
	s.ErrorIs(WrapErrConfigLoadFailed("config.yaml", errors.New("boom")), ErrConfigLoadFailed)

	s.ErrorIs(WrapErrDecodeFailed("cbor", errors.New("boom")), ErrDecodeFailed)

	s.NoError(WrapErrEncodeFailed("json", nil))
	s.NoError(WrapErrDecodeFailed("json", nil))
	s.NoError(WrapErrFieldValueFailed("app.book", "title", nil))
}

func (s *ErrSuite) TestFieldValueFailedKeepsCause() {
	cause := errors.New("connection reset")
	err := WrapErrFieldValueFailed("app.book", "author", cause)
	s.ErrorIs(err, cause)
	s.ErrorIs(err, ErrFieldValueFailed)
	s.Equal(Code(ErrFieldValueFailed), Code(err))
}

func (s *ErrSuite) TestPayloadErrorsKeepCause() {
	err := WrapErrWriteFailed(io.ErrShortWrite)
	s.ErrorIs(err, io.ErrShortWrite)
	s.ErrorIs(err, ErrWriteFailed)
	s.Equal(Code(ErrWriteFailed), Code(err))
	s.True(IsRetryableErr(err))

	cause := errors.New("unexpected EOF")
	err = WrapErrDecodeFailed("yaml", cause)
	s.ErrorIs(err, cause)
	s.ErrorIs(err, ErrDecodeFailed)
	s.Equal(InputError, GetErrorType(err))
	s.NotErrorIs(err, ErrEncodeFailed)

	s.ErrorIs(WrapErrCompressFailed(cause), cause)
	s.ErrorIs(WrapErrEncodeFailed("json", cause), cause)
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(InputError, GetErrorType(WrapErrFormatUnsupported("xml")))
	s.Equal(SystemError, GetErrorType(WrapErrNotImplemented("HandleExtra")))
	s.Equal(SystemError, GetErrorType(errors.New("plain")))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestRetryable() {
	s.True(IsRetryableErr(WrapErrWriteFailed(errors.New("broken pipe"))))
	s.False(IsRetryableErr(ErrNotImplemented))
	s.False(IsRetryableErr(errors.New("plain")))
	s.True(IsCanceledOrTimeout(context.Canceled))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
