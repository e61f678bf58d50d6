package uow

import (
	"context"

	"dddkit/eventing"
	"dddkit/logging"
)

// PublishOnCommit 注册提交成功后发布领域事件的钩子
//
// 仓储在暂存聚合时通过 RecordEvents 收集事件；提交成功后统一发布。
// 发布失败只记录日志：事务已提交，不能因通知失败而回滚。
func PublishOnCommit(u *UnitOfWork, publisher eventing.IPublisher) {
	if u == nil || publisher == nil {
		return
	}
	u.AfterCommit(func(ctx context.Context) {
		events := u.DrainEvents()
		if len(events) == 0 {
			return
		}
		if err := publisher.Publish(ctx, events...); err != nil {
			u.logger.Warn(ctx, "领域事件发布失败",
				logging.String("uow_id", u.id),
				logging.Int("event_count", len(events)),
				logging.Error(err),
			)
		}
	})
}
