// Package value implements the engine's tagged-union Value type (§3),
// the type-compatibility rules binary operators rely on, and the
// three-valued comparison/arithmetic semantics that let null and
// BadData propagate through expressions without failing a query.
//
// A Value is deliberately a single struct with a Kind discriminator
// rather than an interface hierarchy: visitors over expressions (the
// planner's deduce-type and expression-analysis passes) switch on Kind
// the same way the teacher's Cypher executor switches on Go's `any`
// dynamic type, but typed so the planner can reason about result types
// without evaluating anything.
package value

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Kind discriminates which field of Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindTime
	KindDateTime
	KindDuration
	KindList
	KindSet
	KindMap
	KindVertex
	KindEdge
	KindPath
	KindGeography
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	case KindDateTime:
		return "DATETIME"
	case KindDuration:
		return "DURATION"
	case KindList:
		return "LIST"
	case KindSet:
		return "SET"
	case KindMap:
		return "MAP"
	case KindVertex:
		return "VERTEX"
	case KindEdge:
		return "EDGE"
	case KindPath:
		return "PATH"
	case KindGeography:
		return "GEOGRAPHY"
	case KindDataset:
		return "DATASET"
	}
	return "UNKNOWN"
}

// NullSubtype distinguishes the flavors of null the spec calls out:
// a query can produce an "unknown" null (absent property) or a
// "bad-data" null (failed coercion, e.g. division by zero), and the
// distinction matters for diagnostics even though both compare equal
// to plain null.
type NullSubtype uint8

const (
	NullUnknown NullSubtype = iota
	NullBadData
	NullOutOfRange
	NullDivByZero
)

// Value is the tagged sum described in spec §3.
type Value struct {
	Kind Kind

	b   bool
	i   int64
	f   float64
	s   string
	t   time.Time
	dur time.Duration

	null NullSubtype
	list []Value
	m    map[string]Value

	// Graph-typed payloads are stored as `any` to avoid an import
	// cycle with package model; callers type-assert to model.Vertex /
	// model.Edge / model.Path. Dataset rows are likewise opaque here.
	graph any
}

func Null() Value                     { return Value{Kind: KindNull, null: NullUnknown} }
func BadData() Value                  { return Value{Kind: KindNull, null: NullBadData} }
func OutOfRange() Value               { return Value{Kind: KindNull, null: NullOutOfRange} }
func DivByZero() Value                { return Value{Kind: KindNull, null: NullDivByZero} }
func Bool(b bool) Value               { return Value{Kind: KindBool, b: b} }
func Int(i int64) Value               { return Value{Kind: KindInt, i: i} }
func Float(f float64) Value           { return Value{Kind: KindFloat, f: f} }
func String(s string) Value           { return Value{Kind: KindString, s: s} }
func Date(t time.Time) Value          { return Value{Kind: KindDate, t: t} }
func Time(t time.Time) Value          { return Value{Kind: KindTime, t: t} }
func DateTime(t time.Time) Value      { return Value{Kind: KindDateTime, t: t} }
func Duration(d time.Duration) Value  { return Value{Kind: KindDuration, dur: d} }
func List(items []Value) Value        { return Value{Kind: KindList, list: items} }
func Set(items []Value) Value         { return Value{Kind: KindSet, list: dedupe(items)} }
func Map(m map[string]Value) Value    { return Value{Kind: KindMap, m: m} }
func Graph(kind Kind, payload any) Value {
	return Value{Kind: kind, graph: payload}
}

func dedupe(items []Value) []Value {
	out := make([]Value, 0, len(items))
	for _, it := range items {
		dup := false
		for _, o := range out {
			if Equal(it, o).IsTrue() {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, it)
		}
	}
	return out
}

func (v Value) IsNull() bool       { return v.Kind == KindNull }
func (v Value) IsBadData() bool    { return v.Kind == KindNull && v.null == NullBadData }
func (v Value) NullKind() NullSubtype { return v.null }
func (v Value) Bool() bool         { return v.b }
func (v Value) Int() int64         { return v.i }
func (v Value) Float() float64     { return v.f }
func (v Value) Str() string        { return v.s }
func (v Value) Time() time.Time    { return v.t }
func (v Value) Dur() time.Duration { return v.dur }
func (v Value) List() []Value      { return v.list }
func (v Value) Map() map[string]Value { return v.m }
func (v Value) Graph() any         { return v.graph }

// IsNumeric reports whether v is an Int or Float.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// IsTrue/IsFalse test a bool-kinded value without relying on `==` over
// Value, which is not comparable (it carries slice/map fields).
func (v Value) IsTrue() bool  { return v.Kind == KindBool && v.b }
func (v Value) IsFalse() bool { return v.Kind == KindBool && !v.b }

// AsFloat coerces an Int/Float value to float64; callers must check
// IsNumeric first.
func (v Value) AsFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Empty reports whether v is the "superior" empty value used by type
// compatibility rule (b): null, an empty list/set/map, or an empty
// string.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindList, KindSet:
		return len(v.list) == 0
	case KindMap:
		return len(v.m) == 0
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindDate, KindTime, KindDateTime:
		return v.t.String()
	case KindDuration:
		return v.dur.String()
	case KindList, KindSet:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// Compatible implements §3's type compatibility rule:
// (a) identical, (b) either is the superior (null/empty) type,
// (c) both numeric.
func Compatible(a, b Value) bool {
	if a.Kind == b.Kind {
		return true
	}
	if a.Empty() || b.Empty() {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return false
}

// BinaryResultType computes the static result Kind of an arithmetic,
// comparison, or concatenation operator over two operand kinds,
// following §3's binary-op result typing. Used by the planner's
// deduce-type visitor without evaluating the expression.
func BinaryResultType(op string, a, b Kind) Kind {
	switch op {
	case "=", "<>", "!=", "<", "<=", ">", ">=", "AND", "OR", "XOR", "NOT", "IN":
		return KindBool
	case "+":
		if a == KindString || b == KindString {
			return KindString
		}
		fallthrough
	case "-", "*", "/", "%":
		if a == KindFloat || b == KindFloat {
			return KindFloat
		}
		return KindInt
	}
	return KindNull
}

// Arith evaluates +,-,*,/,% over two numeric (or string-concat for +)
// values per §3. Division by zero yields a BadData-tagged null rather
// than failing the expression (§7 propagation policy).
func Arith(op string, a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if op == "+" && (a.Kind == KindString || b.Kind == KindString) {
		return String(a.String() + b.String())
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return BadData()
	}
	useFloat := a.Kind == KindFloat || b.Kind == KindFloat
	switch op {
	case "+":
		if useFloat {
			return Float(a.AsFloat() + b.AsFloat())
		}
		return Int(a.i + b.i)
	case "-":
		if useFloat {
			return Float(a.AsFloat() - b.AsFloat())
		}
		return Int(a.i - b.i)
	case "*":
		if useFloat {
			return Float(a.AsFloat() * b.AsFloat())
		}
		return Int(a.i * b.i)
	case "/":
		if useFloat {
			if b.AsFloat() == 0 {
				return DivByZero()
			}
			return Float(a.AsFloat() / b.AsFloat())
		}
		if b.i == 0 {
			return DivByZero()
		}
		return Int(a.i / b.i)
	case "%":
		if b.AsFloat() == 0 {
			return DivByZero()
		}
		if useFloat {
			return Float(math.Mod(a.AsFloat(), b.AsFloat()))
		}
		return Int(a.i % b.i)
	}
	return BadData()
}

// Cmp orders two compatible values; ordering across incompatible
// kinds is undefined (callers only compare after checking
// Compatible). Numeric comparisons coerce to float.
func Cmp(a, b Value) int {
	if a.IsNumeric() && b.IsNumeric() {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	switch a.Kind {
	case KindString:
		return compareStrings(a.s, b.s)
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindDate, KindTime, KindDateTime:
		switch {
		case a.t.Before(b.t):
			return -1
		case a.t.After(b.t):
			return 1
		default:
			return 0
		}
	case KindDuration:
		switch {
		case a.dur < b.dur:
			return -1
		case a.dur > b.dur:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal implements comparison operators with three-valued logic: null
// propagates to a null-typed result rather than true/false.
func Equal(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if !Compatible(a, b) {
		return Bool(false)
	}
	switch a.Kind {
	case KindList, KindSet:
		return Bool(equalLists(a.list, b.list))
	case KindMap:
		return Bool(equalMaps(a.m, b.m))
	default:
		return Bool(Cmp(a, b) == 0)
	}
}

func equalLists(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]).IsTrue() {
			return false
		}
	}
	return true
}

func equalMaps(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !Equal(v, bv).IsTrue() {
			return false
		}
	}
	return true
}

// Less implements `<` with the same null-propagation policy as Equal.
func Less(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if !Compatible(a, b) {
		return BadData()
	}
	return Bool(Cmp(a, b) < 0)
}

// Not negates a bool value; a non-bool or null operand propagates to
// null rather than panicking, matching §3's null-propagation rule.
func Not(a Value) Value {
	if a.Kind != KindBool {
		return Null()
	}
	return Bool(!a.b)
}

// And implements three-valued logical AND: null AND false is false,
// null AND true is null, matching standard SQL/Cypher null semantics.
func And(a, b Value) Value {
	if a.Kind == KindBool && !a.b {
		return Bool(false)
	}
	if b.Kind == KindBool && !b.b {
		return Bool(false)
	}
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if a.Kind != KindBool || b.Kind != KindBool {
		return BadData()
	}
	return Bool(a.b && b.b)
}

// Or implements three-valued logical OR: null OR true is true, null
// OR false is null.
func Or(a, b Value) Value {
	if a.Kind == KindBool && a.b {
		return Bool(true)
	}
	if b.Kind == KindBool && b.b {
		return Bool(true)
	}
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if a.Kind != KindBool || b.Kind != KindBool {
		return BadData()
	}
	return Bool(a.b || b.b)
}

// Xor implements logical XOR over two bool operands.
func Xor(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	if a.Kind != KindBool || b.Kind != KindBool {
		return BadData()
	}
	return Bool(a.b != b.b)
}

// HashKey produces a stable, canonicalized key for use as a map/group
// key. Floats are canonicalized so that NaN collapses to a single
// representative bit pattern (spec §8 "NaN as group key"), resolving
// Open Question: the raw-bit-pattern contract of §4.C is kept, but a
// canonical NaN is substituted first so every NaN group key hashes
// identically instead of comparing unequal to itself.
func HashKey(v Value) string {
	switch v.Kind {
	case KindFloat:
		f := v.f
		if math.IsNaN(f) {
			f = math.NaN() // canonical NaN bit pattern
		}
		return fmt.Sprintf("f:%d", math.Float64bits(f))
	case KindInt:
		return fmt.Sprintf("i:%d", v.i)
	case KindString:
		return "s:" + v.s
	case KindBool:
		return fmt.Sprintf("b:%v", v.b)
	case KindNull:
		return "null"
	case KindList, KindSet:
		parts := make([]string, len(v.list))
		for i, it := range v.list {
			parts[i] = HashKey(it)
		}
		return "l:" + fmt.Sprint(parts)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "m:"
		for _, k := range keys {
			out += k + "=" + HashKey(v.m[k]) + ";"
		}
		return out
	default:
		return v.String()
	}
}
