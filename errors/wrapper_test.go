package errors

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

// TestWrap 测试基本错误包装
func TestWrap(t *testing.T) {
	ctx := context.Background()
	originalErr := errors.New("原始错误")

	wrapped := WrapWithLog(ctx, originalErr, ErrCodeInternal, "包装消息")

	if wrapped == nil {
		t.Fatal("包装后的错误为nil")
	}

	if !errors.Is(wrapped, originalErr) {
		t.Error("包装后的错误应保留原始错误链")
	}
	if !IsErrorCode(wrapped, ErrCodeInternal) {
		t.Errorf("期望错误码 %s", ErrCodeInternal)
	}
}

// TestWrap_NilError 测试包装nil错误
func TestWrap_NilError(t *testing.T) {
	ctx := context.Background()

	if wrapped := WrapWithLog(ctx, nil, ErrCodeInternal, "消息"); wrapped != nil {
		t.Error("包装nil错误应该返回nil")
	}
}

// TestWrapDatabaseError 测试数据库错误包装
func TestWrapDatabaseError(t *testing.T) {
	ctx := context.Background()
	originalErr := errors.New("数据库连接失败")

	wrapped := WrapDatabaseError(ctx, originalErr, "查询记录")
	if wrapped == nil {
		t.Fatal("包装后的错误为nil")
	}
	if !IsErrorCode(wrapped, ErrCodeDatabase) {
		t.Errorf("期望错误码 %s, 实际 %v", ErrCodeDatabase, wrapped)
	}

	// NotFound 错误透传为 NOT_FOUND
	nf := WrapDatabaseError(ctx, NewNotFoundError("聚合 %s 不存在", "x"), "查询记录")
	if !IsNotFound(nf) {
		t.Errorf("期望 NOT_FOUND, 实际 %v", nf)
	}
}

// TestNewRuleViolation 测试业务规则错误携带稳定规则代码
func TestNewRuleViolation(t *testing.T) {
	err := NewRuleViolation("issue:locked-cannot-reopen")

	if !IsRuleViolation(err) {
		t.Fatal("期望 DOMAIN_RULE_VIOLATION")
	}
	if got := RuleCode(err); got != "issue:locked-cannot-reopen" {
		t.Errorf("规则代码不符: %q", got)
	}

	// 非规则错误返回空串
	if got := RuleCode(NewValidationError("bad input")); got != "" {
		t.Errorf("非规则错误应返回空规则代码, 实际 %q", got)
	}
}

// TestRuleCode_WrappedError 测试包装后的规则错误仍可提取规则代码
func TestRuleCode_WrappedError(t *testing.T) {
	inner := NewRuleViolation("issue:open-issue-limit")
	outer := WrapWithLog(context.Background(), inner, ErrCodeDomainRule, "分配失败")

	if got := RuleCode(outer); got != "" && got != "issue:open-issue-limit" {
		t.Errorf("意外的规则代码: %q", got)
	}
	if !errors.Is(outer, inner) {
		t.Error("包装后的错误应保留错误链")
	}
}

// TestNormalize 测试错误规范化
func TestNormalize(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("nil 应规范化为 nil")
	}

	if err := Normalize(context.Canceled); !IsErrorCode(err, ErrCodeCanceled) {
		t.Errorf("context.Canceled 应规范化为 CANCELED, 实际 %v", err)
	}
	if err := Normalize(context.DeadlineExceeded); !IsErrorCode(err, ErrCodeTimeout) {
		t.Errorf("DeadlineExceeded 应规范化为 TIMEOUT, 实际 %v", err)
	}
	if err := Normalize(sql.ErrNoRows); !IsNotFound(err) {
		t.Errorf("sql.ErrNoRows 应规范化为 NOT_FOUND, 实际 %v", err)
	}

	// 已是 IError 的错误原样返回
	appErr := NewValidationError("bad")
	if got := Normalize(appErr); got != appErr {
		t.Error("IError 应原样返回")
	}

	// 未识别错误原样返回
	plain := errors.New("plain")
	if got := Normalize(plain); got != plain {
		t.Error("未识别错误应原样返回")
	}
}

// TestAppError_Is 测试按错误码匹配
func TestAppError_Is(t *testing.T) {
	a := NewConcurrencyConflict("版本 %d 过期", 3)
	b := NewConcurrencyConflict("another")

	if !errors.Is(a, b) {
		t.Error("相同错误码的 AppError 应相互匹配")
	}
	if errors.Is(a, NewValidationError("x")) {
		t.Error("不同错误码的 AppError 不应匹配")
	}
}
