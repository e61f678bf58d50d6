package sql

import "strings"

// isSafeIdentifier 校验表名、列名是否为安全的数据库标识符。
//
// 接受单一标识符（issues、comment_id）和带点的限定名
// （tracker.issues）。每段首字符必须是字母或下划线，其余字符
// 允许字母、数字、下划线。纯 ASCII 校验，足以挡住空格、分号
// 之类的注入片段。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			if !isIdentByte(part[i], i == 0) {
				return false
			}
		}
	}
	return true
}

func isIdentByte(ch byte, first bool) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
		return true
	case ch >= '0' && ch <= '9':
		return !first
	default:
		return false
	}
}
