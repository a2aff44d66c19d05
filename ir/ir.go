package ir

import (
	"fmt"
	"strings"
)

// Source locates a node in the analyzed program.
type Source struct {
	File string
	Line int
	Col  int
}

func (s *Source) String() string {
	if s == nil {
		return "<unknown>"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

type Node interface {
	fmt.Stringer
	Pos() *Source
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

type Pass struct {
	Src *Source
}

type Seq struct {
	Stmts []Stmt
	Src   *Source
}

// Assign binds Value to Target, which is either a Name or an Attr.
type Assign struct {
	Target Expr
	Value  Expr
	Src    *Source
}

type ExprStmt struct {
	X   Expr
	Src *Source
}

type If struct {
	Cond Expr
	Then Stmt
	Else Stmt
	Src  *Source
}

type While struct {
	Cond Expr
	Body Stmt
	Src  *Source
}

type Break struct {
	Src *Source
}

type Continue struct {
	Src *Source
}

// Return with a nil Value returns None.
type Return struct {
	Value Expr
	Src   *Source
}

type FunDef struct {
	Name   string
	Params []string
	Body   Stmt
	Src    *Source
}

type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstString
	ConstNone
)

type Const struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Src   *Source
}

type Name struct {
	ID  string
	Src *Source
}

type Attr struct {
	X    Expr
	Name string
	Src  *Source
}

type Call struct {
	Func Expr
	Args []Expr
	Src  *Source
}

// LibCall calls a builtin library function, LibCall.<Module>.<Name>.
type LibCall struct {
	Module string
	Name   string
	Args   []Expr
	Src    *Source
}

// BinOp is one of + - * / // % on numbers or ++ on shapes.
type BinOp struct {
	Op    string
	Left  Expr
	Right Expr
	Src   *Source
}

// Compare is one of < <= > >= == !=.
type Compare struct {
	Op    string
	Left  Expr
	Right Expr
	Src   *Source
}

// BoolOp is "and" or "or".
type BoolOp struct {
	Op    string
	Left  Expr
	Right Expr
	Src   *Source
}

type Not struct {
	X   Expr
	Src *Source
}

type Neg struct {
	X   Expr
	Src *Source
}

type Len struct {
	X   Expr
	Src *Source
}

// ShapeLit builds a Size from its dimensions.
type ShapeLit struct {
	Dims []Expr
	Src  *Source
}

type Index struct {
	X     Expr
	Index Expr
	Src   *Source
}

type SymbolKind int

const (
	SymbolInt SymbolKind = iota
	SymbolFloat
	SymbolShape
)

// Symbol introduces a fresh symbolic value. Rank is only used by shapes.
type Symbol struct {
	Name string
	Kind SymbolKind
	Rank Expr
	Src  *Source
}

// NewObject allocates an empty object tagged with the class bound to Class,
// or an untagged object when Class is empty.
type NewObject struct {
	Class string
	Src   *Source
}

// ClassDef binds Name to a class whose instances inherit from Bases.
type ClassDef struct {
	Name  string
	Bases []string
	Src   *Source
}

func (*Pass) stmt()     {}
func (*Seq) stmt()      {}
func (*Assign) stmt()   {}
func (*ExprStmt) stmt() {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}
func (*Return) stmt()   {}
func (*FunDef) stmt()   {}
func (*ClassDef) stmt() {}

func (*Const) expr()     {}
func (*Name) expr()      {}
func (*Attr) expr()      {}
func (*Call) expr()      {}
func (*LibCall) expr()   {}
func (*BinOp) expr()     {}
func (*Compare) expr()   {}
func (*BoolOp) expr()    {}
func (*Not) expr()       {}
func (*Neg) expr()       {}
func (*Len) expr()       {}
func (*ShapeLit) expr()  {}
func (*Index) expr()     {}
func (*Symbol) expr()    {}
func (*NewObject) expr() {}

func (s *Pass) Pos() *Source      { return s.Src }
func (s *Seq) Pos() *Source       { return s.Src }
func (s *Assign) Pos() *Source    { return s.Src }
func (s *ExprStmt) Pos() *Source  { return s.Src }
func (s *If) Pos() *Source        { return s.Src }
func (s *While) Pos() *Source     { return s.Src }
func (s *Break) Pos() *Source     { return s.Src }
func (s *Continue) Pos() *Source  { return s.Src }
func (s *Return) Pos() *Source    { return s.Src }
func (s *FunDef) Pos() *Source    { return s.Src }
func (s *ClassDef) Pos() *Source  { return s.Src }
func (e *Const) Pos() *Source     { return e.Src }
func (e *Name) Pos() *Source      { return e.Src }
func (e *Attr) Pos() *Source      { return e.Src }
func (e *Call) Pos() *Source      { return e.Src }
func (e *LibCall) Pos() *Source   { return e.Src }
func (e *BinOp) Pos() *Source     { return e.Src }
func (e *Compare) Pos() *Source   { return e.Src }
func (e *BoolOp) Pos() *Source    { return e.Src }
func (e *Not) Pos() *Source       { return e.Src }
func (e *Neg) Pos() *Source       { return e.Src }
func (e *Len) Pos() *Source       { return e.Src }
func (e *ShapeLit) Pos() *Source  { return e.Src }
func (e *Index) Pos() *Source     { return e.Src }
func (e *Symbol) Pos() *Source    { return e.Src }
func (e *NewObject) Pos() *Source { return e.Src }

func (s *Pass) String() string {
	return "pass"
}

func (s *Seq) String() string {
	var lines []string
	for _, st := range s.Stmts {
		lines = append(lines, st.String())
	}
	return strings.Join(lines, "\n")
}

func (s *Assign) String() string {
	return fmt.Sprintf("%s = %s", s.Target, s.Value)
}

func (s *ExprStmt) String() string {
	return s.X.String()
}

func indent(s Stmt) string {
	if s == nil {
		return "  pass"
	}
	return "  " + strings.ReplaceAll(s.String(), "\n", "\n  ")
}

func (s *If) String() string {
	str := fmt.Sprintf("if %s:\n%s", s.Cond, indent(s.Then))
	if s.Else != nil {
		str += "\nelse:\n" + indent(s.Else)
	}
	return str
}

func (s *While) String() string {
	return fmt.Sprintf("while %s:\n%s", s.Cond, indent(s.Body))
}

func (s *Break) String() string {
	return "break"
}

func (s *Continue) String() string {
	return "continue"
}

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Value)
}

func (s *FunDef) String() string {
	return fmt.Sprintf("def %s(%s):\n%s", s.Name, strings.Join(s.Params, ", "), indent(s.Body))
}

func (s *ClassDef) String() string {
	return fmt.Sprintf("class %s(%s)", s.Name, strings.Join(s.Bases, ", "))
}

func (e *Const) String() string {
	switch e.Kind {
	case ConstInt:
		return fmt.Sprint(e.Int)
	case ConstFloat:
		return fmt.Sprint(e.Float)
	case ConstBool:
		return fmt.Sprint(e.Bool)
	case ConstString:
		return fmt.Sprintf("%q", e.Str)
	case ConstNone:
		return "None"
	default:
		panic(fmt.Sprintf("unknown constant kind %d", int(e.Kind)))
	}
}

func (e *Name) String() string {
	return e.ID
}

func (e *Attr) String() string {
	return fmt.Sprintf("%s.%s", e.X, e.Name)
}

func joinExprs(es []Expr) string {
	var s []string
	for _, e := range es {
		s = append(s, e.String())
	}
	return strings.Join(s, ", ")
}

func (e *Call) String() string {
	return fmt.Sprintf("%s(%s)", e.Func, joinExprs(e.Args))
}

func (e *LibCall) String() string {
	return fmt.Sprintf("LibCall.%s.%s(%s)", e.Module, e.Name, joinExprs(e.Args))
}

func (e *BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *BoolOp) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *Not) String() string {
	return fmt.Sprintf("not %s", e.X)
}

func (e *Neg) String() string {
	return fmt.Sprintf("-%s", e.X)
}

func (e *Len) String() string {
	return fmt.Sprintf("len(%s)", e.X)
}

func (e *ShapeLit) String() string {
	return fmt.Sprintf("Size([%s])", joinExprs(e.Dims))
}

func (e *Index) String() string {
	return fmt.Sprintf("%s[%s]", e.X, e.Index)
}

func (e *Symbol) String() string {
	switch e.Kind {
	case SymbolFloat:
		return fmt.Sprintf("symbol float %s", e.Name)
	case SymbolShape:
		return fmt.Sprintf("symbol shape %s(rank=%v)", e.Name, e.Rank)
	default:
		return fmt.Sprintf("symbol int %s", e.Name)
	}
}

func (e *NewObject) String() string {
	return fmt.Sprintf("object %s()", e.Class)
}
