// Package service 定义领域服务基础设施
//
// 领域服务承载不属于单个聚合的业务逻辑：跨多个聚合实例的规则、
// 需要存储级查询的约束（如统计某用户名下的开放工单数）等。
//
// 约束：
//   - 无状态：不持有业务数据，只持有构造时注入的协作者（仓储、其他服务）；
//   - 只接受并返回领域类型，绝不接触上游用例层的数据传输形态；
//   - 实体内部绝不解析服务；需要外部数据的实体逻辑要么以参数显式传入，
//     要么移入领域服务，由服务通过包内可见的加宽修改方法操作聚合。
package service

// IDomainService 领域服务标记接口
type IDomainService interface {
	// ServiceName 返回服务名称（用于日志）
	ServiceName() string
}
