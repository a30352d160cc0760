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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case serializerError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := errors.Cause(err).(serializerError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func GetErrorType(err error) ErrorType {
	if merr, ok := errors.Cause(err).(serializerError); ok {
		return merr.errType
	}

	return SystemError
}

// Handler 相关错误封装。
func WrapErrNotImplemented(hook string, msg ...string) error {
	err := wrapFields(ErrNotImplemented, value("hook", hook))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrFieldKindMismatch(field string, kind fmt.Stringer, got any) error {
	return wrapFieldsWithDesc(ErrFieldKindMismatch,
		fmt.Sprintf("descriptor %T does not implement %s", got, kind),
		value("field", field),
	)
}

func WrapErrRelationKindUnknown(accessor string, kind fmt.Stringer) error {
	return wrapFields(ErrRelationKindUnknown, value("accessor", accessor), value("kind", kind))
}

// Field 相关错误封装。
func WrapErrFieldNotFound[T any](field T, msg ...string) error {
	err := wrapFields(ErrFieldNotFound, value("field", field))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrFieldValueFailed(model, field string, err error) error {
	if err == nil {
		return nil
	}
	return Combine(err, wrapFields(ErrFieldValueFailed, value("model", model), value("field", field)))
}

// Parameter 相关错误封装。
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Format / Dump 相关错误封装。
func WrapErrFormatUnsupported(format string, supported ...string) error {
	return wrapFieldsWithDesc(ErrFormatUnsupported,
		"supported: "+strings.Join(supported, ","),
		value("format", format),
	)
}

func WrapErrEncodeFailed(format string, err error) error {
	if err == nil {
		return nil
	}
	return Combine(err, wrapFields(ErrEncodeFailed, value("format", format)))
}

func WrapErrDecodeFailed(format string, err error) error {
	if err == nil {
		return nil
	}
	return Combine(err, wrapFields(ErrDecodeFailed, value("format", format)))
}

func WrapErrCompressFailed(err error) error {
	if err == nil {
		return nil
	}
	return Combine(err, ErrCompressFailed)
}

// WrapErrWriteFailed 保留原始错误，errors.Is 仍可匹配 io.ErrShortWrite 等底层错误。
func WrapErrWriteFailed(err error) error {
	if err == nil {
		return nil
	}
	return Combine(err, ErrWriteFailed)
}

// Config 相关错误封装。
func WrapErrConfigLoadFailed(path string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrConfigLoadFailed, err.Error(), value("path", path))
}

func wrapFields(err serializerError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err serializerError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
