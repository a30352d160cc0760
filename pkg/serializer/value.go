package serializer

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"time"
)

// isProtected 判断 v 是否为受保护类型：nil、布尔、数值、时间与定点小数，
// 这些值原样输出，不转换为字符串。
func isProtected(v any) bool {
	switch v.(type) {
	case nil, time.Time, time.Duration, json.Number,
		*big.Int, *big.Float, *big.Rat:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// smartString 受保护类型原样返回，其它值转换为字符串。
func smartString(v any) any {
	if isProtected(v) {
		if isNil(v) {
			return nil
		}
		return v
	}
	return toString(v)
}

func toString(v any) string {
	if isNil(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	}
	return fmt.Sprint(v)
}

// isNil 同时识别无类型 nil 与带类型的空指针。
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
