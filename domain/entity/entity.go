// Package entity 定义领域实体与聚合根的核心接口体系
//
// 设计原则：
// 1. 接口最小化 - 每个接口只包含必需的方法
// 2. 组合优于继承 - 通过接口组合构建复杂类型
// 3. 泛型支持 - 提供类型安全的 ID 类型
//
// 不变式约束：
//   - 参与业务规则的字段只能通过命名方法修改，禁止外部直接写字段；
//   - 成对字段（如关闭标记 + 关闭原因）必须同时修改，避免出现不一致组合；
//   - 跨聚合关系只持有对方聚合的 ID 值，绝不持有对象引用。
package entity

// IObject 最基础的对象接口，所有实体的根接口
// 使用泛型支持不同的 ID 类型（int64、string、UUID等）
type IObject[ID comparable] interface {
	// GetID 返回对象的唯一标识
	GetID() ID
}

// IEntity 实体接口，在 IObject 基础上增加版本控制
// 版本号用于乐观锁，防止并发冲突：提交时检测版本是否过期
type IEntity[ID comparable] interface {
	IObject[ID]

	// GetVersion 返回实体的乐观锁版本号
	GetVersion() int64
}

// IValidatable 可验证接口
// 实现此接口的实体可以验证自身状态的有效性
type IValidatable interface {
	// Validate 验证实体状态是否有效
	// 返回 error 表示验证失败，nil 表示验证成功
	Validate() error
}

// IVersionSettable 可回写乐观锁版本的实体
// 持久化层在提交成功后用它把新版本号写回存储副本
type IVersionSettable interface {
	SetVersion(version int64)
}

// Entity 通用实体字段（用于嵌入）
//
// 示例:
//
//	type Comment struct {
//	    entity.Entity[entity.ChildKey[uuid.UUID]]
//	    Text string
//	}
type Entity[ID comparable] struct {
	ID      ID    `json:"id"`
	Version int64 `json:"version"`
}

// GetID 实现 IObject 接口
func (e *Entity[ID]) GetID() ID {
	return e.ID
}

// GetVersion 实现 IEntity 接口
func (e *Entity[ID]) GetVersion() int64 {
	return e.Version
}

// SetVersion 回写乐观锁版本号
// 仅供持久化层在成功提交后调用，领域方法不维护版本号
func (e *Entity[ID]) SetVersion(version int64) {
	e.Version = version
}

// ChildKey 子实体复合主键：(父聚合ID, 聚合内局部ID)
//
// 子实体不可独立寻址：没有自己的仓储，只能随所属聚合整体装载与保存，
// 生命周期严格绑定在父聚合上。
type ChildKey[ID comparable] struct {
	ParentID ID     `json:"parent_id"`
	Local    string `json:"local"`
}
