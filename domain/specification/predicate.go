// Package specification 提供可组合的规约（谓词）引擎
//
// 规约是无状态、不可变、可参数化的布尔谓词，对组合封闭：
// And/Or/AndNot 的结果仍是规约。单个实例可被并发求值，无需同步。
//
// 每个规约同时携带两种形态：
//   - 内存求值：IsSatisfiedBy 直接对单个实例求值；
//   - 可检查的谓词表达式：Predicate() 返回带标签的变体节点树，
//     供外部查询执行协作者（如 data/specsql）翻译为存储端过滤条件。
//
// 规约自身绝不触碰数据存储；只有仓储的查询路径可以翻译并执行谓词。
package specification

// Operator 比较运算符
type Operator string

const (
	OpEq   Operator = "eq"
	OpNe   Operator = "ne"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// Predicate 谓词表达式节点（tagged variant）
//
// 节点树是纯数据，不含闭包，因此可以被存储端翻译器遍历。
// Opaque 节点例外：它代表仅内存可求值的自定义谓词，
// 翻译器遇到它时必须回退为"可翻译部分过滤 + 内存再过滤"。
type Predicate interface {
	predicateNode()
}

// AlwaysTrue 恒真谓词（组合运算的单位元）
type AlwaysTrue struct{}

// Comparison 字段比较：Field Op Value
// Field 是领域层字段名，由存储端翻译器映射为列名
type Comparison struct {
	Field string
	Op    Operator
	Value any
}

// Negation 逻辑非
type Negation struct {
	Inner Predicate
}

// Conjunction 逻辑与
type Conjunction struct {
	Left  Predicate
	Right Predicate
}

// Disjunction 逻辑或
type Disjunction struct {
	Left  Predicate
	Right Predicate
}

// Opaque 仅内存可求值的自定义谓词
// Name 用于日志与调试，不参与求值
type Opaque struct {
	Name string
}

func (AlwaysTrue) predicateNode()  {}
func (Comparison) predicateNode()  {}
func (Negation) predicateNode()    {}
func (Conjunction) predicateNode() {}
func (Disjunction) predicateNode() {}
func (Opaque) predicateNode()      {}

// IsTranslatable 判断谓词树是否不含 Opaque 节点，即可被完整翻译到存储端
func IsTranslatable(p Predicate) bool {
	switch node := p.(type) {
	case AlwaysTrue, Comparison:
		return true
	case Negation:
		return IsTranslatable(node.Inner)
	case Conjunction:
		return IsTranslatable(node.Left) && IsTranslatable(node.Right)
	case Disjunction:
		return IsTranslatable(node.Left) && IsTranslatable(node.Right)
	default:
		return false
	}
}
