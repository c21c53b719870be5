package memdeck

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound 文档、表格或图表不存在
	ErrNotFound = errors.New("memdeck: not found")
	// ErrInvalidRequest 请求参数不合法
	ErrInvalidRequest = errors.New("memdeck: invalid request")
)

// A1Ref 解析后的 A1 范围，行列从 0 开始；Rows/Cols 为 0 表示不限
type A1Ref struct {
	Sheet string
	Row   int
	Col   int
	Rows  int
	Cols  int
}

// ParseA1 解析 'Sheet Name'!A1:B4、Sheet1!C2 或 A1:B4
func ParseA1(s string) (A1Ref, error) {
	var ref A1Ref
	cells := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		sheet := s[:i]
		if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
		ref.Sheet = sheet
		cells = s[i+1:]
	}
	if cells == "" {
		return ref, fmt.Errorf("empty range %q", s)
	}

	start, end, hasEnd := strings.Cut(cells, ":")
	r, c, err := parseCell(start)
	if err != nil {
		return ref, err
	}
	ref.Row, ref.Col = r, c
	if hasEnd {
		er, ec, err := parseCell(end)
		if err != nil {
			return ref, err
		}
		if er < r || ec < c {
			return ref, fmt.Errorf("inverted range %q", s)
		}
		ref.Rows, ref.Cols = er-r+1, ec-c+1
	}
	return ref, nil
}

func parseCell(s string) (row, col int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, fmt.Errorf("invalid cell %q", s)
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid cell %q", s)
	}
	return n - 1, col - 1, nil
}
