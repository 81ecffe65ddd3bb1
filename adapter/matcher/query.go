package matcher

import "regexp"

// Numeric representations of supported logic operators.
const (
	And uint8 = iota
	Or
	Nor
	Not
)

// Numeric representations of supported field operators.
const (
	Eq uint8 = iota
	Ne
	Exists
	Lt
	Lte
	Gt
	Gte
	Size
	In
	Nin
	ElemMatch
	Regex
	NotCond
)

// Query stores a compiled filter. An empty query matches everything.
type Query struct {
	Lo LogicOp
}

// LogicOp stores a logic operator and its children, which can be either a set
// of rules or a nested set of LogicOps. All the rules and children of an And
// must match.
type LogicOp struct {
	Type  uint8
	Rules []FieldRule
	Sub   []LogicOp
}

// FieldRule stores a set of conditions used to match a given object field. An
// empty Addr refers to the matched value itself, which is how $elemMatch
// applies operators to array items.
type FieldRule struct {
	Addr  []string
	Conds []Cond
}

// Cond stores a single operation on a document field (such as $gt, $size).
type Cond struct {
	Op   uint8
	Val  any
	List []any
	Rgx  *regexp.Regexp
	Sub  *Query
	Not  []Cond
}
