package errors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	// 通用错误代码
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeCanceled     ErrorCode = "CANCELED"

	// 领域错误代码
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDomainRule    ErrorCode = "DOMAIN_RULE_VIOLATION"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConcurrency   ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeTransaction   ErrorCode = "TRANSACTION_ERROR"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// 基础设施错误代码
	ErrCodeDatabase   ErrorCode = "DATABASE_ERROR"
	ErrCodeCache      ErrorCode = "CACHE_ERROR"
	ErrCodeQueue      ErrorCode = "QUEUE_ERROR"
)

// detailKeyRule DomainRuleViolation 的规则代码在 details 中的键
const detailKeyRule = "rule"

// IError 错误接口
type IError interface {
	error

	// 获取错误代码
	Code() ErrorCode

	// 获取错误消息
	Message() string

	// 获取原始错误
	Cause() error

	// 获取错误详情
	Details() map[string]any

	// 获取堆栈信息
	Stack() string

	// 是否为指定类型的错误
	Is(target error) bool

	// 包装错误
	Wrap(msg string) IError

	// 添加详情
	WithDetails(details map[string]any) IError

	// 添加上下文
	WithContext(key string, value any) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// NewErrorWithCause 创建带原因的错误
func NewErrorWithCause(code ErrorCode, message string, cause error) IError {
	return &AppError{
		code:    code,
		message: message,
		cause:   cause,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}

	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// NewValidationError 创建验证错误（构造函数/方法入参不合法）
func NewValidationError(format string, args ...any) IError {
	return NewError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NewRuleViolation 创建业务规则违反错误
//
// rule 是稳定的机器可读规则代码（例如 "issue:locked-cannot-reopen"），
// 由上层协作者映射为用户可见文案；这里不携带自由文本。
func NewRuleViolation(rule string) IError {
	return NewError(ErrCodeDomainRule, string(ErrCodeDomainRule)).
		WithContext(detailKeyRule, rule)
}

// RuleCode 提取业务规则违反错误中的规则代码，非规则错误返回空串
func RuleCode(err error) string {
	var appErr *AppError
	if !stdErrors.As(err, &appErr) || appErr.code != ErrCodeDomainRule {
		return ""
	}
	if rule, ok := appErr.Details()[detailKeyRule].(string); ok {
		return rule
	}
	return ""
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(format string, args ...any) IError {
	return NewError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// NewConcurrencyConflict 创建乐观锁版本冲突错误
func NewConcurrencyConflict(format string, args ...any) IError {
	return NewError(ErrCodeConcurrency, fmt.Sprintf(format, args...))
}

// NewTransactionError 创建事务提交失败错误（已保证整体回滚）
func NewTransactionError(message string, cause error) IError {
	if cause == nil {
		return NewError(ErrCodeTransaction, message)
	}
	return NewErrorWithCause(ErrCodeTransaction, message, cause)
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code 获取错误代码
func (e *AppError) Code() ErrorCode {
	return e.code
}

// Message 获取错误消息
func (e *AppError) Message() string {
	return e.message
}

// Cause 获取原始错误
func (e *AppError) Cause() error {
	return e.cause
}

// Details 获取错误详情
func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	return e.details
}

// Stack 获取堆栈信息
func (e *AppError) Stack() string {
	return e.stack
}

// Is 检查是否为指定类型的错误
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}

	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}

	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}

	return false
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

// Wrap 包装错误
func (e *AppError) Wrap(msg string) IError {
	return &AppError{
		code:    e.code,
		message: fmt.Sprintf("%s: %s", msg, e.message),
		cause:   e,
		details: copyMap(e.details),
		stack:   captureStack(),
	}
}

// WithDetails 添加详情
func (e *AppError) WithDetails(details map[string]any) IError {
	newDetails := copyMap(e.details)
	for k, v := range details {
		newDetails[k] = v
	}

	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: newDetails,
		stack:   e.stack,
	}
}

// WithContext 添加上下文
func (e *AppError) WithContext(key string, value any) IError {
	newDetails := copyMap(e.details)
	newDetails[key] = value

	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: newDetails,
		stack:   e.stack,
	}
}

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsValidation 检查是否为验证错误
func IsValidation(err error) bool {
	return IsErrorCode(err, ErrCodeValidation)
}

// IsRuleViolation 检查是否为业务规则违反错误
func IsRuleViolation(err error) bool {
	return IsErrorCode(err, ErrCodeDomainRule)
}

// IsConcurrencyConflict 检查是否为并发冲突错误
func IsConcurrencyConflict(err error) bool {
	return IsErrorCode(err, ErrCodeConcurrency)
}

// IsTransactionError 检查是否为事务提交失败错误
func IsTransactionError(err error) bool {
	return IsErrorCode(err, ErrCodeTransaction)
}

// IsErrorCode 检查是否为指定错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}

	return false
}

// copyMap 复制详情 map
func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// captureStack 捕获调用堆栈（跳过 errors 包内部帧）
func captureStack() string {
	const depth = 16
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.Function, "dddkit/errors.") {
			if !more {
				break
			}
			continue
		}
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
