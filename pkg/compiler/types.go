package compiler

import "strings"

// canonicalTypeName maps a surface type name to its target spelling.
func canonicalTypeName(name string) string {
	switch name {
	case "int":
		return "i64"
	case "float":
		return "f64"
	case "str":
		return "String"
	case "List", "list":
		return "Vec"
	case "Dict", "dict":
		return "HashMap"
	case "Set", "set":
		return "HashSet"
	}
	return name
}

// qualifiedTypes need a full path since no use declarations are emitted.
var qualifiedTypes = map[string]string{
	"HashMap":  "std::collections::HashMap",
	"HashSet":  "std::collections::HashSet",
	"BTreeMap": "std::collections::BTreeMap",
	"VecDeque": "std::collections::VecDeque",
	"Rc":       "std::rc::Rc",
	"RefCell":  "std::cell::RefCell",
	"Arc":      "std::sync::Arc",
}

// rustType renders a type annotation.
func rustType(t TypeExpr) string {
	switch t := t.(type) {
	case nil:
		return "()"
	case *InferType:
		return "_"
	case *TupleType:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = rustType(e)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *NamedType:
		var name string
		if len(t.Path) == 1 {
			name = canonicalTypeName(t.Path[0])
			if q, ok := qualifiedTypes[name]; ok {
				name = q
			}
		} else {
			name = strings.Join(t.Path, "::")
		}
		if len(t.Args) == 0 {
			return name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = rustType(a)
		}
		return name + "<" + strings.Join(args, ", ") + ">"
	}
	return "_"
}

// isUnitType reports an annotation that renders as ().
func isUnitType(t TypeExpr) bool {
	if t == nil {
		return true
	}
	tt, ok := t.(*TupleType)
	return ok && len(tt.Elems) == 0
}

func typeParamList(tps []TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	parts := make([]string, len(tps))
	for i, tp := range tps {
		parts[i] = tp.Name
		if len(tp.Bounds) > 0 {
			bounds := make([]string, len(tp.Bounds))
			for j, b := range tp.Bounds {
				bounds[j] = rustType(b)
			}
			parts[i] += ": " + strings.Join(bounds, " + ")
		}
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// typeArgNames renders <T, U> without bounds, for impl targets.
func typeArgNames(tps []TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	names := make([]string, len(tps))
	for i, tp := range tps {
		names[i] = tp.Name
	}
	return "<" + strings.Join(names, ", ") + ">"
}

var opTexts = map[TokenType]string{
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", DOUBLESLASH: "/", PERCENT: "%",
	AMP: "&", PIPE: "|", CARET: "^", SHL_OP: "<<", SHR_OP: ">>",
	EQUALS: "==", NOT_EQ: "!=", LESS: "<", LESS_EQ: "<=", GREATER: ">", GREATER_EQ: ">=",
	AND: "&&", OR: "||", NOT: "!", TILDE: "!", DOUBLESTAR: "**",

	ASSIGN: "=", PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", STAR_ASSIGN: "*=",
	SLASH_ASSIGN: "/=", DOUBLESLASH_ASSIGN: "/=", PERCENT_ASSIGN: "%=",
	PIPE_ASSIGN: "|=", AMP_ASSIGN: "&=", CARET_ASSIGN: "^=",
	SHL_ASSIGN: "<<=", SHR_ASSIGN: ">>=", DOUBLESTAR_ASSIGN: "**=",
}

// opText returns the target operator for op.
func opText(op TokenType) string {
	if s, ok := opTexts[op]; ok {
		return s
	}
	return op.String()
}

// Binding strength of target binary operators, loosest first.
const (
	precOr = iota + 1
	precAnd
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
	precCast
	precUnary
	precPostfix
)

func binaryPrec(op TokenType) int {
	switch op {
	case OR:
		return precOr
	case AND:
		return precAnd
	case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
		return precCompare
	case PIPE:
		return precBitOr
	case CARET:
		return precBitXor
	case AMP:
		return precBitAnd
	case SHL_OP, SHR_OP:
		return precShift
	case PLUS, MINUS:
		return precAdd
	}
	return precMul
}

// exprPrec is the binding strength of e as rendered.
func exprPrec(e Expr) int {
	switch t := e.(type) {
	case *BinaryExpr:
		return binaryPrec(t.Op)
	case *UnaryExpr:
		return precUnary
	case *CastExpr:
		return precCast
	case *RangeExpr, *ClosureExpr, *MatchExpr:
		return 0
	}
	return precPostfix
}
