// Package di 提供简单的依赖注入容器。
//
// 注意：本包暴露的全局容器（globalContainer 及 RegisterGlobal/ResolveGlobal/MustResolveGlobal）
// 仅推荐用于快速原型、demo、示例程序或遗留代码迁移过程。
// 在生产代码中，应优先通过显式注入的方式使用依赖：
// - 在应用启动阶段构造并传递容器实例；
// - 通过构造函数参数将依赖传入业务对象，而不是在函数内部直接访问全局容器。
// 直接依赖全局容器会引入全局状态风险，包括但不限于：
// - 测试隔离困难（不同测试用例共享同一容器状态）；
// - 对启动顺序产生隐式依赖（必须按特定顺序注册服务）；
// - 隐式依赖难以追踪（调用方无法从函数签名看出所需依赖）。
package di

import (
	"fmt"
	"reflect"
	"sync"
)

// Container 以类型为键的依赖注入容器
type Container struct {
	services map[reflect.Type]any
	mutex    sync.RWMutex
}

// New 创建空容器
func New() *Container {
	return &Container{
		services: make(map[reflect.Type]any),
	}
}

// Register 注册服务实例
// service 应为指针，键取其元素类型，与 Resolve 的取键方式一致
func (c *Container) Register(service any) error {
	if service == nil {
		return fmt.Errorf("service cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	t := reflect.TypeOf(service)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	c.services[t] = service

	return nil
}

// RegisterAs 以接口类型为键注册服务
// serviceType 传接口指针的 nil 值，如 (*eventing.IPublisher)(nil)
func (c *Container) RegisterAs(serviceType any, service any) error {
	if service == nil {
		return fmt.Errorf("service cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	t := reflect.TypeOf(serviceType).Elem()
	c.services[t] = service

	return nil
}

// Resolve 按类型解析服务
func (c *Container) Resolve(serviceType any) (any, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	t := reflect.TypeOf(serviceType).Elem()
	service, exists := c.services[t]
	if !exists {
		return nil, fmt.Errorf("service not found: %v", t)
	}

	return service, nil
}

// MustResolve 解析服务（panic版本）
func (c *Container) MustResolve(serviceType any) any {
	service, err := c.Resolve(serviceType)
	if err != nil {
		panic(err)
	}
	return service
}

// Has 检查服务是否存在
func (c *Container) Has(serviceType any) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	t := reflect.TypeOf(serviceType).Elem()
	_, exists := c.services[t]
	return exists
}

// 全局容器
var globalContainer = New()

// RegisterGlobal 注册到全局容器
func RegisterGlobal(service any) error {
	return globalContainer.Register(service)
}

// RegisterAsGlobal 注册到全局容器（指定接口）
func RegisterAsGlobal(serviceType any, service any) error {
	return globalContainer.RegisterAs(serviceType, service)
}

// ResolveGlobal 从全局容器解析
func ResolveGlobal(serviceType any) (any, error) {
	return globalContainer.Resolve(serviceType)
}

// MustResolveGlobal 从全局容器解析（panic版本）
func MustResolveGlobal(serviceType any) any {
	return globalContainer.MustResolve(serviceType)
}
