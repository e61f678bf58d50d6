package repository

import (
	"fmt"

	"dddkit/errors"
)

// NewNotFound 创建聚合未找到错误
// 调用方必须显式处理；核心绝不内部吞掉此错误。
func NewNotFound(aggregateType string, id any) error {
	return errors.NewNotFoundError("%s %v 不存在", aggregateType, id)
}

// NewVersionConflict 创建乐观锁版本冲突错误（提交时检测到过期版本）
func NewVersionConflict(aggregateType string, id any, staged, stored int64) error {
	return errors.NewConcurrencyConflict(
		"%s %v 版本冲突: 暂存版本 %d, 存储版本 %d", aggregateType, id, staged, stored)
}

// NewNoActiveScope 创建"无活动工作单元"错误
// 暂存方法（Add/Update/Delete）要求调用方已 Begin 一个作用域。
func NewNoActiveScope(operation string) error {
	return errors.NewTransactionError(
		fmt.Sprintf("%s 需要活动的工作单元作用域", operation), nil)
}

// NewAlreadyExists 创建聚合已存在错误（重复 Add 同一标识）
func NewAlreadyExists(aggregateType string, id any) error {
	return errors.NewError(errors.ErrCodeAlreadyExists,
		fmt.Sprintf("%s %v 已存在", aggregateType, id))
}
