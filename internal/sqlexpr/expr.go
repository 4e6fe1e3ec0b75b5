// Package sqlexpr is a small SQL expression tree. Every node implements
// squirrel.Sqlizer and renders with "?" placeholders; Render rewrites them
// into the target placeholder format.
package sqlexpr

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Expr is a renderable SQL expression node.
type Expr interface {
	sq.Sqlizer
	ExpressionNode()
}

// Ident is a bare identifier or qualified column name, emitted verbatim.
type Ident string

// Param is a bound parameter.
type Param struct{ Value any }

// Lit is a constant emitted inline. Only strings, integers, floats and
// booleans are allowed; strings are single-quoted.
type Lit struct{ Value any }

// Null is the SQL NULL literal.
type Null struct{}

// Raw is verbatim SQL text with optional placeholder args.
type Raw struct {
	SQL  string
	Args []any
}

// Func is a prefix call: Name(args...). Name may be dotted. An empty Name
// renders a parenthesized argument list.
type Func struct {
	Name string
	Args []Expr
}

// Method is a member call: Recv.Name(args...).
type Method struct {
	Recv Expr
	Name string
	Args []Expr
}

// Prop is a member property read: Recv.Name.
type Prop struct {
	Recv Expr
	Name string
}

// Member prefixes an arbitrary expression with a receiver: Recv.X.
type Member struct {
	Recv Expr
	X    Expr
}

// Binary is Left Op Right, e.g. "a <= ?".
type Binary struct {
	Left  Expr
	Op    string
	Right Expr
}

// And joins conditions with AND inside parentheses.
type And []Expr

// Not negates X.
type Not struct{ X Expr }

// IsNull renders "X IS NULL" or "X IS NOT NULL".
type IsNull struct {
	X      Expr
	Negate bool
}

// Cast renders CAST(X AS Type).
type Cast struct {
	X    Expr
	Type string
}

// Sub is a parenthesized subquery.
type Sub struct{ Query sq.SelectBuilder }

// In renders "X IN (subquery)".
type In struct {
	X     Expr
	Query sq.SelectBuilder
}

func (Ident) ExpressionNode()  {}
func (Param) ExpressionNode()  {}
func (Lit) ExpressionNode()    {}
func (Null) ExpressionNode()   {}
func (Raw) ExpressionNode()    {}
func (Func) ExpressionNode()   {}
func (Method) ExpressionNode() {}
func (Prop) ExpressionNode()   {}
func (Member) ExpressionNode() {}
func (Binary) ExpressionNode() {}
func (And) ExpressionNode()    {}
func (Not) ExpressionNode()    {}
func (IsNull) ExpressionNode() {}
func (Cast) ExpressionNode()   {}
func (Sub) ExpressionNode()    {}
func (In) ExpressionNode()     {}

func (e Ident) ToSql() (string, []any, error) { return string(e), nil, nil }

func (e Param) ToSql() (string, []any, error) { return "?", []any{e.Value}, nil }

func (e Lit) ToSql() (string, []any, error) {
	switch v := e.Value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil, nil
	case int:
		return strconv.Itoa(v), nil, nil
	case int64:
		return strconv.FormatInt(v, 10), nil, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil, nil
	case bool:
		if v {
			return "TRUE", nil, nil
		}
		return "FALSE", nil, nil
	default:
		return "", nil, fmt.Errorf("literal of type %T cannot be inlined", e.Value)
	}
}

func (Null) ToSql() (string, []any, error) { return "NULL", nil, nil }

func (e Raw) ToSql() (string, []any, error) { return e.SQL, e.Args, nil }

func (e Func) ToSql() (string, []any, error) {
	args, params, err := list(e.Args)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return e.Name + "(" + args + ")", params, nil
}

func (e Method) ToSql() (string, []any, error) {
	recv, params, err := e.Recv.ToSql()
	if err != nil {
		return "", nil, err
	}
	args, argParams, err := list(e.Args)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return recv + "." + e.Name + "(" + args + ")", append(params, argParams...), nil
}

func (e Prop) ToSql() (string, []any, error) {
	recv, params, err := e.Recv.ToSql()
	if err != nil {
		return "", nil, err
	}
	return recv + "." + e.Name, params, nil
}

func (e Member) ToSql() (string, []any, error) {
	recv, params, err := e.Recv.ToSql()
	if err != nil {
		return "", nil, err
	}
	x, xParams, err := e.X.ToSql()
	if err != nil {
		return "", nil, err
	}
	return recv + "." + x, append(params, xParams...), nil
}

func (e Binary) ToSql() (string, []any, error) {
	left, params, err := e.Left.ToSql()
	if err != nil {
		return "", nil, err
	}
	right, rightParams, err := e.Right.ToSql()
	if err != nil {
		return "", nil, err
	}
	return left + " " + e.Op + " " + right, append(params, rightParams...), nil
}

func (e And) ToSql() (string, []any, error) {
	conj := make(sq.And, len(e))
	for i, part := range e {
		conj[i] = part
	}
	return conj.ToSql()
}

func (e Not) ToSql() (string, []any, error) {
	inner, params, err := e.X.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + inner + ")", params, nil
}

func (e IsNull) ToSql() (string, []any, error) {
	inner, params, err := e.X.ToSql()
	if err != nil {
		return "", nil, err
	}
	if e.Negate {
		return inner + " IS NOT NULL", params, nil
	}
	return inner + " IS NULL", params, nil
}

func (e Cast) ToSql() (string, []any, error) {
	inner, params, err := e.X.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "CAST(" + inner + " AS " + e.Type + ")", params, nil
}

func (e Sub) ToSql() (string, []any, error) {
	query, params, err := e.Query.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("subquery: %w", err)
	}
	return "(" + query + ")", params, nil
}

func (e In) ToSql() (string, []any, error) {
	inner, params, err := e.X.ToSql()
	if err != nil {
		return "", nil, err
	}
	sub, subParams, err := Sub{Query: e.Query}.ToSql()
	if err != nil {
		return "", nil, err
	}
	return inner + " IN " + sub, append(params, subParams...), nil
}

func list(exprs []Expr) (string, []any, error) {
	parts := make([]string, len(exprs))
	var params []any
	for i, e := range exprs {
		s, p, err := e.ToSql()
		if err != nil {
			return "", nil, err
		}
		parts[i] = s
		params = append(params, p...)
	}
	return strings.Join(parts, ", "), params, nil
}

// Call is shorthand for Func{Name: name, Args: args}.
func Call(name string, args ...Expr) Func {
	return Func{Name: name, Args: args}
}

// Eq is shorthand for Binary{left, "=", right}.
func Eq(left, right Expr) Binary {
	return Binary{Left: left, Op: "=", Right: right}
}

// Render converts e to SQL using the placeholder format.
func Render(e sq.Sqlizer, format sq.PlaceholderFormat) (string, []any, error) {
	s, params, err := e.ToSql()
	if err != nil {
		return "", nil, err
	}
	if format == nil {
		return s, params, nil
	}
	s, err = format.ReplacePlaceholders(s)
	if err != nil {
		return "", nil, fmt.Errorf("replace placeholders: %w", err)
	}
	return s, params, nil
}
