package errors

import (
	"errors"
	"fmt"

	"firestocks/pkg/errors/ecode"
)

// 带业务错误码的error，handler层统一通过 response.JSON 解码

type codeError struct {
	code    int
	message string
	cause   error
}

func (e *codeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *codeError) Unwrap() error {
	return e.cause
}

// WithCode 创建一个带错误码的error
func WithCode(code int, format string, args ...interface{}) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if msg == "" {
		msg = ecode.Text(code)
	}
	return &codeError{code: code, message: msg}
}

// Wrap 包装底层error并附加错误码
func Wrap(err error, code int, message string) error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = ecode.Text(code)
	}
	return &codeError{code: code, message: message, cause: err}
}

// DecodeErr 解码error，返回错误码和提示信息
// nil 返回 (ecode.Success, "OK")；非codeError按Unknown处理
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Text(ecode.Success)
	}
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code, ce.message
	}
	return ecode.Unknown, err.Error()
}

// IsCode 判断err的错误码是否为code
func IsCode(err error, code int) bool {
	c, _ := DecodeErr(err)
	return c == code
}
