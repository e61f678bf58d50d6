// Package specsql 将规约谓词翻译为 SQL WHERE 条件。
//
// 不可翻译的子树（Opaque 叶子、未映射字段）按"放宽"处理：
// 该子树退化为恒真条件，使结果集成为真实匹配集的超集，
// 仓储端随后用规约的内存求值对超集二次过滤。
package specsql

import (
	"fmt"
	"reflect"
	"strings"

	"dddkit/data/db/dialect"
	spec "dddkit/domain/specification"
)

// Result 单次翻译的产物
type Result struct {
	// Cond WHERE 条件片段（使用 ? 占位符）；空串表示无约束
	Cond string
	Args []any

	// Exact 为 true 时条件与谓词语义完全等价，结果无需二次过滤
	Exact bool
}

// Translator 按字段→列映射翻译谓词
type Translator struct {
	dialect dialect.Dialect
	columns map[string]string
}

// NewTranslator 创建翻译器
// columns 给出谓词字段名到数据库列名的映射；未映射的字段视为不可翻译。
func NewTranslator(d dialect.Dialect, columns map[string]string) *Translator {
	return &Translator{dialect: d, columns: columns}
}

// Translate 翻译谓词
// 谓词含未知节点类型时返回错误；Opaque 节点不是错误，只是放宽。
func (t *Translator) Translate(p spec.Predicate) (Result, error) {
	switch node := p.(type) {
	case spec.AlwaysTrue:
		return Result{Exact: true}, nil

	case spec.Opaque:
		return Result{Exact: false}, nil

	case spec.Comparison:
		return t.translateComparison(node)

	case spec.Negation:
		inner, err := t.Translate(node.Inner)
		if err != nil {
			return Result{}, err
		}
		// 非精确子树取反后无法保证超集性质，只能整体放宽
		if !inner.Exact {
			return Result{Exact: false}, nil
		}
		if inner.Cond == "" {
			// NOT(恒真) 恒假
			return Result{Cond: "1 = 0", Exact: true}, nil
		}
		return Result{Cond: "NOT (" + inner.Cond + ")", Args: inner.Args, Exact: true}, nil

	case spec.Conjunction:
		left, err := t.Translate(node.Left)
		if err != nil {
			return Result{}, err
		}
		right, err := t.Translate(node.Right)
		if err != nil {
			return Result{}, err
		}
		// 超集 AND 超集仍是超集，可保留已翻译的一侧
		return combine(left, right, "AND"), nil

	case spec.Disjunction:
		left, err := t.Translate(node.Left)
		if err != nil {
			return Result{}, err
		}
		right, err := t.Translate(node.Right)
		if err != nil {
			return Result{}, err
		}
		// 任一侧无约束时整体无约束
		if left.Cond == "" || right.Cond == "" {
			return Result{Exact: left.Exact && right.Exact}, nil
		}
		return combine(left, right, "OR"), nil

	default:
		return Result{}, fmt.Errorf("specsql: 未知谓词节点 %T", p)
	}
}

func combine(left, right Result, op string) Result {
	out := Result{Exact: left.Exact && right.Exact}
	switch {
	case left.Cond == "" && right.Cond == "":
		return out
	case left.Cond == "":
		out.Cond, out.Args = right.Cond, right.Args
		return out
	case right.Cond == "":
		out.Cond, out.Args = left.Cond, left.Args
		return out
	}
	out.Cond = "(" + left.Cond + " " + op + " " + right.Cond + ")"
	out.Args = append(append([]any{}, left.Args...), right.Args...)
	return out
}

func (t *Translator) translateComparison(c spec.Comparison) (Result, error) {
	column, ok := t.columns[c.Field]
	if !ok {
		// 未映射字段按不可翻译放宽
		return Result{Exact: false}, nil
	}
	column = t.dialect.QuoteIdentifier(column)

	switch c.Op {
	case spec.OpEq:
		return Result{Cond: column + " = ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpNe:
		return Result{Cond: column + " <> ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpGt:
		return Result{Cond: column + " > ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpGte:
		return Result{Cond: column + " >= ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpLt:
		return Result{Cond: column + " < ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpLte:
		return Result{Cond: column + " <= ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpLike:
		return Result{Cond: column + " LIKE ?", Args: []any{c.Value}, Exact: true}, nil
	case spec.OpIn:
		values := expandSlice(c.Value)
		if len(values) == 0 {
			// IN 空集恒假
			return Result{Cond: "1 = 0", Exact: true}, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return Result{Cond: column + " IN (" + placeholders + ")", Args: values, Exact: true}, nil
	default:
		return Result{}, fmt.Errorf("specsql: 未知比较算子 %v", c.Op)
	}
}

// expandSlice 把 IN 的值展开为参数列表，非切片值退化为单元素
func expandSlice(value any) []any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
