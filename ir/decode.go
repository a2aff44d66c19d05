package ir

import (
	"bytes"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Decode reads a statement tree written as a YAML sequence of statements.
// Every statement is a mapping keyed by its kind:
//
//	- assign: x
//	  value: {int: 3}
//	- expr: {call: LibCall.guard.require_lt, args: [x, {int: 5}, {str: "x < 5"}]}
//	- if: {op: "<", left: x, right: {int: 5}}
//	  then: [...]
//	  else: [...]
//
// Plain scalars are names, numbers, booleans or None; string literals are
// written as {str: ...}.
func Decode(r io.Reader, file string) (Stmt, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return &Seq{Src: &Source{File: file, Line: 1, Col: 1}}, nil
		}
		return nil, errors.Wrapf(err, "can't parse %s", file)
	}
	d := &decoder{file: file}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	stmt := d.block(node)
	if d.err != nil {
		return nil, d.err
	}
	return stmt, nil
}

func DecodeBytes(b []byte, file string) (Stmt, error) {
	return Decode(bytes.NewReader(b), file)
}

type decoder struct {
	file string
	err  error
}

func (d *decoder) src(n *yaml.Node) *Source {
	return &Source{File: d.file, Line: n.Line, Col: n.Column}
}

func (d *decoder) fail(n *yaml.Node, format string, args ...interface{}) {
	d.err = multierror.Append(d.err, errors.Errorf("%s: "+format, append([]interface{}{d.src(n)}, args...)...))
}

func fields(n *yaml.Node) map[string]*yaml.Node {
	m := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}
	return m
}

func (d *decoder) block(n *yaml.Node) Stmt {
	if n == nil {
		return &Pass{}
	}
	if n.Kind != yaml.SequenceNode {
		d.fail(n, "expected a sequence of statements")
		return &Pass{Src: d.src(n)}
	}
	seq := &Seq{Src: d.src(n)}
	for _, c := range n.Content {
		if s := d.stmt(c); s != nil {
			seq.Stmts = append(seq.Stmts, s)
		}
	}
	return seq
}

func (d *decoder) scalarString(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		d.fail(n, "expected a scalar")
		return ""
	}
	return n.Value
}

func (d *decoder) stmt(n *yaml.Node) Stmt {
	src := d.src(n)
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "pass":
			return &Pass{Src: src}
		case "break":
			return &Break{Src: src}
		case "continue":
			return &Continue{Src: src}
		case "return":
			return &Return{Src: src}
		}
		d.fail(n, "unknown statement %q", n.Value)
		return nil
	}
	if n.Kind != yaml.MappingNode {
		d.fail(n, "expected a statement mapping")
		return nil
	}
	f := fields(n)
	switch {
	case f["pass"] != nil:
		return &Pass{Src: src}
	case f["break"] != nil:
		return &Break{Src: src}
	case f["continue"] != nil:
		return &Continue{Src: src}
	case f["assign"] != nil:
		return &Assign{Target: d.target(f["assign"]), Value: d.expr(f["value"]), Src: src}
	case f["expr"] != nil:
		return &ExprStmt{X: d.expr(f["expr"]), Src: src}
	case f["if"] != nil:
		s := &If{Cond: d.expr(f["if"]), Then: d.block(f["then"]), Src: src}
		if f["else"] != nil {
			s.Else = d.block(f["else"])
		}
		return s
	case f["while"] != nil:
		return &While{Cond: d.expr(f["while"]), Body: d.block(f["body"]), Src: src}
	case f["return"] != nil:
		s := &Return{Src: src}
		if r := f["return"]; !(r.Kind == yaml.ScalarNode && r.Tag == "!!null") {
			s.Value = d.expr(r)
		}
		return s
	case f["def"] != nil:
		s := &FunDef{Name: d.scalarString(f["def"]), Body: d.block(f["body"]), Src: src}
		if p := f["params"]; p != nil {
			for _, c := range p.Content {
				s.Params = append(s.Params, d.scalarString(c))
			}
		}
		return s
	case f["class"] != nil:
		s := &ClassDef{Name: d.scalarString(f["class"]), Src: src}
		if b := f["bases"]; b != nil {
			for _, c := range b.Content {
				s.Bases = append(s.Bases, d.scalarString(c))
			}
		}
		return s
	}
	d.fail(n, "unknown statement")
	return nil
}

func (d *decoder) target(n *yaml.Node) Expr {
	e := d.expr(n)
	switch e.(type) {
	case *Name, *Attr:
		return e
	}
	d.fail(n, "can't assign to %s", e)
	return e
}

func (d *decoder) exprs(n *yaml.Node) []Expr {
	if n == nil {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.fail(n, "expected a sequence of expressions")
		return nil
	}
	var es []Expr
	for _, c := range n.Content {
		es = append(es, d.expr(c))
	}
	return es
}

func (d *decoder) scalar(n *yaml.Node) Expr {
	src := d.src(n)
	switch n.Tag {
	case "!!null":
		return &Const{Kind: ConstNone, Src: src}
	case "!!int":
		c := &Const{Kind: ConstInt, Src: src}
		if err := n.Decode(&c.Int); err != nil {
			d.fail(n, "%v", err)
		}
		return c
	case "!!float":
		c := &Const{Kind: ConstFloat, Src: src}
		if err := n.Decode(&c.Float); err != nil {
			d.fail(n, "%v", err)
		}
		return c
	case "!!bool":
		c := &Const{Kind: ConstBool, Src: src}
		if err := n.Decode(&c.Bool); err != nil {
			d.fail(n, "%v", err)
		}
		return c
	}
	if n.Value == "None" {
		return &Const{Kind: ConstNone, Src: src}
	}
	return d.name(n.Value, n)
}

// name turns a dotted path into nested attribute lookups.
func (d *decoder) name(path string, n *yaml.Node) Expr {
	src := d.src(n)
	parts := strings.Split(path, ".")
	var e Expr = &Name{ID: parts[0], Src: src}
	for _, p := range parts[1:] {
		e = &Attr{X: e, Name: p, Src: src}
	}
	return e
}

func (d *decoder) expr(n *yaml.Node) Expr {
	if n == nil {
		return &Const{Kind: ConstNone}
	}
	src := d.src(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalar(n)
	case yaml.SequenceNode:
		return &ShapeLit{Dims: d.exprs(n), Src: src}
	case yaml.MappingNode:
	default:
		d.fail(n, "expected an expression")
		return &Const{Kind: ConstNone, Src: src}
	}

	f := fields(n)
	switch {
	case f["int"] != nil:
		c := &Const{Kind: ConstInt, Src: src}
		if err := f["int"].Decode(&c.Int); err != nil {
			d.fail(n, "%v", err)
		}
		return c
	case f["float"] != nil:
		c := &Const{Kind: ConstFloat, Src: src}
		if err := f["float"].Decode(&c.Float); err != nil {
			d.fail(n, "%v", err)
		}
		return c
	case f["bool"] != nil:
		c := &Const{Kind: ConstBool, Src: src}
		if err := f["bool"].Decode(&c.Bool); err != nil {
			d.fail(n, "%v", err)
		}
		return c
	case f["str"] != nil:
		return &Const{Kind: ConstString, Str: f["str"].Value, Src: src}
	case f["none"] != nil:
		return &Const{Kind: ConstNone, Src: src}
	case f["name"] != nil:
		return &Name{ID: d.scalarString(f["name"]), Src: src}
	case f["attr"] != nil:
		return &Attr{X: d.expr(f["of"]), Name: d.scalarString(f["attr"]), Src: src}
	case f["call"] != nil:
		fn := f["call"]
		args := d.exprs(f["args"])
		if fn.Kind == yaml.ScalarNode && strings.HasPrefix(fn.Value, "LibCall.") {
			parts := strings.SplitN(strings.TrimPrefix(fn.Value, "LibCall."), ".", 2)
			if len(parts) != 2 {
				d.fail(fn, "malformed library call %q", fn.Value)
				return &Const{Kind: ConstNone, Src: src}
			}
			return &LibCall{Module: parts[0], Name: parts[1], Args: args, Src: src}
		}
		return &Call{Func: d.expr(fn), Args: args, Src: src}
	case f["op"] != nil:
		op := d.scalarString(f["op"])
		left, right := d.expr(f["left"]), d.expr(f["right"])
		switch op {
		case "+", "-", "*", "/", "//", "%", "++":
			return &BinOp{Op: op, Left: left, Right: right, Src: src}
		case "<", "<=", ">", ">=", "==", "!=":
			return &Compare{Op: op, Left: left, Right: right, Src: src}
		case "and", "or":
			return &BoolOp{Op: op, Left: left, Right: right, Src: src}
		}
		d.fail(f["op"], "unknown operator %q", op)
		return &Const{Kind: ConstNone, Src: src}
	case f["not"] != nil:
		return &Not{X: d.expr(f["not"]), Src: src}
	case f["neg"] != nil:
		return &Neg{X: d.expr(f["neg"]), Src: src}
	case f["len"] != nil:
		return &Len{X: d.expr(f["len"]), Src: src}
	case f["shape"] != nil:
		return &ShapeLit{Dims: d.exprs(f["shape"]), Src: src}
	case f["index"] != nil:
		return &Index{X: d.expr(f["of"]), Index: d.expr(f["index"]), Src: src}
	case f["symbol"] != nil:
		s := &Symbol{Name: d.scalarString(f["symbol"]), Src: src}
		if t := f["type"]; t != nil {
			switch t.Value {
			case "int":
				s.Kind = SymbolInt
			case "float":
				s.Kind = SymbolFloat
			case "shape":
				s.Kind = SymbolShape
			default:
				d.fail(t, "unknown symbol type %q", t.Value)
			}
		}
		if r := f["rank"]; r != nil {
			s.Rank = d.expr(r)
		}
		return s
	case f["object"] != nil:
		o := &NewObject{Src: src}
		if c := f["object"]; c.Tag != "!!null" {
			o.Class = c.Value
		}
		return o
	}
	d.fail(n, "unknown expression")
	return &Const{Kind: ConstNone, Src: src}
}
