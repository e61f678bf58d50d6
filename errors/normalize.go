package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
)

// Normalize 将领域层/基础设施层的错误规范化为 AppError。
//
// 设计目标：
//   - 对外统一暴露 ErrorCode 体系，避免上层出现一堆"裸"错误类型；
//   - 保留原始错误作为 cause，方便日志与调试。
//
// 注意：
//   - 如果传入的 err 已经是 IError，则原样返回；
//   - 未识别的错误保持原样，不强行包装，交由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	// 已经是 AppError，直接返回
	if _, ok := err.(IError); ok {
		return err
	}

	// 取消与超时
	if stdErrors.Is(err, context.Canceled) {
		return WrapError(err, ErrCodeCanceled, "操作已取消")
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrCodeTimeout, "操作超时")
	}

	// database/sql 常见错误
	if stdErrors.Is(err, sql.ErrNoRows) {
		return WrapError(err, ErrCodeNotFound, "记录不存在")
	}
	if stdErrors.Is(err, sql.ErrTxDone) {
		return WrapError(err, ErrCodeTransaction, "事务已结束")
	}

	// 未识别的错误保持原样
	return err
}
