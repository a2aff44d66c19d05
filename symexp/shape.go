package symexp

import "fmt"

type Error string

func (e Error) Error() string { return string(e) }

// ErrIndexOutOfRange is returned when a constant index falls outside of a
// shape whose rank is statically known.
const ErrIndexOutOfRange = Error("shape index out of range")

func ShapeOf(dims ...Num) Shape {
	return ShapeConst{Dims: append([]Num(nil), dims...)}
}

func ShapeOfInts(dims ...int64) Shape {
	var nums []Num
	for _, d := range dims {
		nums = append(nums, Int(d))
	}
	return ShapeConst{Dims: nums}
}

func NewShapeSymbol(name string, rank Num) Shape {
	return ShapeSymbol{Name: name, Rank: rank}
}

// Rank reduces the length of a shape as far as its structure allows.
func Rank(s Shape) Num {
	switch s := s.(type) {
	case ShapeConst:
		return Int(int64(len(s.Dims)))
	case ShapeSymbol:
		if s.Rank != nil {
			return s.Rank
		}
	case ShapeConcat:
		return Add(Rank(s.Left), Rank(s.Right))
	case ShapeSet:
		return Rank(s.Base)
	case ShapeSlice:
		r, ok := ConstInt(Rank(s.Base))
		if !ok {
			break
		}
		start, end, ok := sliceBounds(r, s.Start, s.End)
		if !ok {
			break
		}
		return Int(end - start)
	}
	return NumRank{Shape: s}
}

// ReduceLen simplifies a length expression, collapsing ranks of shapes built
// from concrete-length sequences.
func ReduceLen(n Num) Num {
	return SimplifyNum(n)
}

// AbsIndexByLen turns a possibly negative index into an absolute one given the
// length it indexes into. It reports false if idx is not a literal.
func AbsIndexByLen(length, idx Num) (Num, bool) {
	i, ok := ConstInt(idx)
	if !ok {
		return nil, false
	}
	if i >= 0 {
		return idx, true
	}
	if l, ok := ConstInt(length); ok {
		return Int(l + i), true
	}
	return Add(length, idx), true
}

// FetchSize returns every dimension of s if all of them are known.
func FetchSize(s Shape) ([]int64, bool) {
	c, ok := SimplifyShape(s).(ShapeConst)
	if !ok {
		return nil, false
	}
	dims := make([]int64, 0, len(c.Dims))
	for _, d := range c.Dims {
		v, ok := ConstInt(d)
		if !ok {
			return nil, false
		}
		dims = append(dims, v)
	}
	return dims, true
}

func normalizeIndex(rank, idx Num) (Num, error) {
	i, ok := ConstInt(idx)
	if !ok {
		return idx, nil
	}
	r, ok := ConstInt(rank)
	if !ok {
		return idx, nil
	}
	if i < 0 {
		i += r
	}
	if i < 0 || i >= r {
		return nil, fmt.Errorf("%w: index %d of rank %d", ErrIndexOutOfRange, i, r)
	}
	return Int(i), nil
}

// Dim indexes a shape. An out-of-range literal index into a shape of known
// rank is an error the caller has to report.
func Dim(s Shape, idx Num) (Num, error) {
	idx, err := normalizeIndex(Rank(s), idx)
	if err != nil {
		return nil, err
	}
	i, known := ConstInt(idx)
	// a negative index survives normalization only when the rank is unknown,
	// and then it can't be resolved against any operand
	if !known || i < 0 {
		return NumDim{Shape: s, Index: idx}, nil
	}
	switch s := s.(type) {
	case ShapeConst:
		return s.Dims[i], nil
	case ShapeConcat:
		if l, ok := ConstInt(Rank(s.Left)); ok {
			if i < l {
				return Dim(s.Left, idx)
			}
			return Dim(s.Right, Int(i-l))
		}
	case ShapeSet:
		if a, ok := ConstInt(s.Axis); ok && a >= 0 {
			if a == i {
				return s.Dim, nil
			}
			return Dim(s.Base, idx)
		}
	case ShapeSlice:
		if st, ok := ConstInt(s.Start); ok && st >= 0 {
			return Dim(s.Base, Int(st+i))
		}
	}
	return NumDim{Shape: s, Index: idx}, nil
}

func dimOrNode(s Shape, idx Num) Num {
	d, err := Dim(s, idx)
	if err != nil {
		return NumDim{Shape: s, Index: idx}
	}
	return d
}

func Numel(s Shape) Num {
	if c, ok := s.(ShapeConst); ok {
		var n Num = Int(1)
		for _, d := range c.Dims {
			n = Mul(n, d)
		}
		return n
	}
	return NumNumel{Shape: s}
}

func Concat(a, b Shape) Shape {
	ca, aok := a.(ShapeConst)
	cb, bok := b.(ShapeConst)
	switch {
	case aok && bok:
		dims := append(append([]Num(nil), ca.Dims...), cb.Dims...)
		return ShapeConst{Dims: dims}
	case aok && len(ca.Dims) == 0:
		return b
	case bok && len(cb.Dims) == 0:
		return a
	}
	return ShapeConcat{Left: a, Right: b}
}

func sliceBounds(rank int64, start, end Num) (int64, int64, bool) {
	s, ok := ConstInt(start)
	if !ok {
		return 0, 0, false
	}
	e := rank
	if end != nil {
		if e, ok = ConstInt(end); !ok {
			return 0, 0, false
		}
	}
	clamp := func(i int64) int64 {
		if i < 0 {
			i += rank
		}
		if i < 0 {
			return 0
		}
		if i > rank {
			return rank
		}
		return i
	}
	s, e = clamp(s), clamp(e)
	if e < s {
		e = s
	}
	return s, e, true
}

// Slice is s[start:end] with the usual clamping of out-of-range bounds. A nil
// end slices to the end of s.
func Slice(s Shape, start, end Num) Shape {
	if c, ok := s.(ShapeConst); ok {
		if from, to, ok := sliceBounds(int64(len(c.Dims)), start, end); ok {
			return ShapeConst{Dims: append([]Num(nil), c.Dims[from:to]...)}
		}
	}
	if isConstValue(start, 0) && end == nil {
		return s
	}
	return ShapeSlice{Base: s, Start: start, End: end}
}

// SetDim replaces one dimension of s.
func SetDim(s Shape, axis, dim Num) (Shape, error) {
	axis, err := normalizeIndex(Rank(s), axis)
	if err != nil {
		return nil, err
	}
	if c, ok := s.(ShapeConst); ok {
		if a, ok := ConstInt(axis); ok {
			dims := append([]Num(nil), c.Dims...)
			dims[a] = dim
			return ShapeConst{Dims: dims}, nil
		}
	}
	return ShapeSet{Base: s, Axis: axis, Dim: dim}, nil
}

func setDimOrNode(s Shape, axis, dim Num) Shape {
	r, err := SetDim(s, axis, dim)
	if err != nil {
		return ShapeSet{Base: s, Axis: axis, Dim: dim}
	}
	return r
}
