package specification

// ISpecification 规约接口
//
// 实现必须满足：
//   - 纯函数：相同输入永远得到相同输出，无副作用；
//   - IsSatisfiedBy 与 Predicate() 描述同一个谓词的两种形态。
type ISpecification[T any] interface {
	// IsSatisfiedBy 判断候选实例是否满足规约
	IsSatisfiedBy(candidate T) bool

	// Predicate 返回可检查、可翻译的谓词表达式
	Predicate() Predicate
}

// spec 内部实现：谓词表达式 + 对应的内存求值函数
type spec[T any] struct {
	pred Predicate
	eval func(T) bool
}

func (s spec[T]) IsSatisfiedBy(candidate T) bool { return s.eval(candidate) }
func (s spec[T]) Predicate() Predicate           { return s.pred }

// New 由谓词表达式和内存求值函数创建规约
//
// 两者必须语义一致：eval 是 pred 的直接求值解释器。
// 领域包中的叶子规约通常用 Where/FromFunc 创建，无需直接调用 New。
func New[T any](pred Predicate, eval func(T) bool) ISpecification[T] {
	return spec[T]{pred: pred, eval: eval}
}

// Always 恒真规约（And/Or 折叠的单位元）
func Always[T any]() ISpecification[T] {
	return spec[T]{
		pred: AlwaysTrue{},
		eval: func(T) bool { return true },
	}
}

// Where 创建字段比较叶子规约
//
// eval 是该比较在内存中的求值实现；表达式节点记录 field/op/value，
// 供存储端翻译。两者由叶子规约的作者保证一致。
func Where[T any](field string, op Operator, value any, eval func(T) bool) ISpecification[T] {
	return spec[T]{
		pred: Comparison{Field: field, Op: op, Value: value},
		eval: eval,
	}
}

// FromFunc 创建仅内存可求值的自定义规约
// name 用于日志与调试
func FromFunc[T any](name string, eval func(T) bool) ISpecification[T] {
	return spec[T]{
		pred: Opaque{Name: name},
		eval: eval,
	}
}

// And 逻辑与组合（短路求值；满足交换律与结合律）
func And[T any](left, right ISpecification[T]) ISpecification[T] {
	return spec[T]{
		pred: Conjunction{Left: left.Predicate(), Right: right.Predicate()},
		eval: func(candidate T) bool {
			return left.IsSatisfiedBy(candidate) && right.IsSatisfiedBy(candidate)
		},
	}
}

// Or 逻辑或组合（短路求值；满足交换律与结合律）
func Or[T any](left, right ISpecification[T]) ISpecification[T] {
	return spec[T]{
		pred: Disjunction{Left: left.Predicate(), Right: right.Predicate()},
		eval: func(candidate T) bool {
			return left.IsSatisfiedBy(candidate) || right.IsSatisfiedBy(candidate)
		},
	}
}

// AndNot 组合：left && !right
func AndNot[T any](left, right ISpecification[T]) ISpecification[T] {
	return spec[T]{
		pred: Conjunction{Left: left.Predicate(), Right: Negation{Inner: right.Predicate()}},
		eval: func(candidate T) bool {
			return left.IsSatisfiedBy(candidate) && !right.IsSatisfiedBy(candidate)
		},
	}
}

// Not 逻辑非
func Not[T any](inner ISpecification[T]) ISpecification[T] {
	return spec[T]{
		pred: Negation{Inner: inner.Predicate()},
		eval: func(candidate T) bool {
			return !inner.IsSatisfiedBy(candidate)
		},
	}
}

// All 对规约列表做 And 折叠；空列表返回恒真规约
func All[T any](specs ...ISpecification[T]) ISpecification[T] {
	result := Always[T]()
	for _, s := range specs {
		result = And(result, s)
	}
	return result
}

// AnyOf 对规约列表做 Or 折叠；空列表返回恒真规约
func AnyOf[T any](specs ...ISpecification[T]) ISpecification[T] {
	if len(specs) == 0 {
		return Always[T]()
	}
	result := specs[0]
	for _, s := range specs[1:] {
		result = Or(result, s)
	}
	return result
}
