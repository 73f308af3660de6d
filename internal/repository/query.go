package repository

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Query 简单查询计划：等值/IN/范围谓词（AND），可选的 OR 范围组，多字段排序与分页。
// 字段名在 ToSQL 时按白名单校验。
type Query struct {
	conds  []sq.Sqlizer
	fields []string
	orders []string
	limit  uint64
	offset uint64
}

func NewQuery() *Query { return &Query{} }

func (q *Query) use(field string) { q.fields = append(q.fields, field) }

// Eq field = v；v 为空字符串时忽略，便于可选过滤
func (q *Query) Eq(field string, v any) *Query {
	if s, ok := v.(string); ok && s == "" {
		return q
	}
	q.use(field)
	q.conds = append(q.conds, sq.Eq{field: v})
	return q
}

// In field IN (vs...)；空切片生成恒假条件
func (q *Query) In(field string, vs []string) *Query {
	q.use(field)
	q.conds = append(q.conds, sq.Eq{field: vs})
	return q
}

// Range from <= field < to，nil 表示该端无界
func (q *Query) Range(field string, from, to any) *Query {
	q.use(field)
	if from != nil {
		q.conds = append(q.conds, sq.GtOrEq{field: from})
	}
	if to != nil {
		q.conds = append(q.conds, sq.Lt{field: to})
	}
	return q
}

// AnySince 任一字段 >= since 即命中
func (q *Query) AnySince(since any, fields ...string) *Query {
	or := make(sq.Or, 0, len(fields))
	for _, f := range fields {
		q.use(f)
		or = append(or, sq.GtOrEq{f: since})
	}
	if len(or) > 0 {
		q.conds = append(q.conds, or)
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Like 任一字段 LOWER(field) LIKE %term%，terms 之间为 OR；term 中的 % 和 _ 按字面匹配
func (q *Query) Like(terms []string, fields ...string) *Query {
	or := sq.Or{}
	for _, f := range fields {
		q.use(f)
		for _, t := range terms {
			or = append(or, sq.Expr("LOWER("+f+`) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(t))+"%"))
		}
	}
	if len(or) > 0 {
		q.conds = append(q.conds, or)
	}
	return q
}

func (q *Query) OrderBy(field string, desc bool) *Query {
	q.use(field)
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q.orders = append(q.orders, field+" "+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.limit = uint64(n)
	}
	return q
}

func (q *Query) Offset(n int) *Query {
	if n > 0 {
		q.offset = uint64(n)
	}
	return q
}

// ToSQL 生成 `?` 占位符的 SQL，由 gorm 按方言重写占位符
func (q *Query) ToSQL(table string, allowed map[string]bool) (string, []any, error) {
	for _, f := range q.fields {
		if !allowed[f] {
			return "", nil, fmt.Errorf("query: field %q is not queryable on %s", f, table)
		}
	}
	b := sq.Select("*").From(table)
	for _, c := range q.conds {
		b = b.Where(c)
	}
	if len(q.orders) > 0 {
		b = b.OrderBy(q.orders...)
	}
	if q.limit > 0 {
		b = b.Limit(q.limit)
	}
	if q.offset > 0 {
		b = b.Offset(q.offset)
	}
	return b.ToSql()
}
