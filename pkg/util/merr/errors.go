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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 在此定义叶子错误。
// WARN: 新增错误前请先确认下面已有的错误是否可以复用。
// 命名规则：Err + 相关前缀 + 错误名
var (
	// Handler 相关
	ErrNotImplemented      = newSerializerError("hook not implemented", 1, false)
	ErrFieldKindMismatch   = newSerializerError("field descriptor kind mismatch", 2, false)
	ErrRelationKindUnknown = newSerializerError("unknown relation kind", 3, false)

	// Field 相关
	ErrFieldNotFound    = newSerializerError("field not found", 100, false)
	ErrFieldValueFailed = newSerializerError("fail to resolve field value", 101, false)

	// Parameter 相关
	ErrParameterInvalid = newSerializerError("invalid parameter", 200, false, WithErrorType(InputError))
	ErrParameterMissing = newSerializerError("missing parameter", 201, false, WithErrorType(InputError))

	// Format / Dump 相关
	ErrFormatUnsupported = newSerializerError("unsupported format", 300, false, WithErrorType(InputError))
	ErrEncodeFailed      = newSerializerError("fail to encode records", 301, false)
	ErrCompressFailed    = newSerializerError("fail to compress payload", 302, false)
	ErrWriteFailed       = newSerializerError("fail to write payload", 303, true)
	ErrDecodeFailed      = newSerializerError("fail to decode payload", 304, false, WithErrorType(InputError))

	// Config 相关
	ErrConfigLoadFailed = newSerializerError("fail to load config", 400, false)

	// 不要导出，仅用于把未知错误转换为 serializerError
	errUnexpected = newSerializerError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*serializerError)

func WithDetail(detail string) errorOption {
	return func(err *serializerError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *serializerError) {
		err.errType = etype
	}
}

type serializerError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newSerializerError(msg string, code int32, retriable bool, options ...errorOption) serializerError {
	err := serializerError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e serializerError) code() int32 {
	return e.errCode
}

func (e serializerError) Error() string {
	return e.msg
}

func (e serializerError) Detail() string {
	return e.detail
}

func (e serializerError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(serializerError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 定义为最后一个错误，Code 依赖这一点
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
