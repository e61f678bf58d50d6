package errors

import (
	"context"
	"fmt"
	"runtime"

	"dddkit/logging"
)

// WrapWithLog 包装错误并记录警告日志，附带调用位置。
// 用在需要立即留痕的基础设施错误上。
func WrapWithLog(ctx context.Context, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)
	logging.GetLogger().Warn(ctx, msg, allFields...)

	return WrapError(err, code, msg)
}

// WrapDatabaseError 包装数据库错误。
// NotFound 直接转语义错误不落日志，其余按 DATABASE_ERROR 记录。
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	if IsNotFound(err) {
		return WrapError(err, ErrCodeNotFound, operation)
	}

	return WrapWithLog(ctx, err, ErrCodeDatabase,
		fmt.Sprintf("数据库操作失败: %s", operation),
		logging.String("operation", operation),
	)
}
