package compiler

import (
	"nilan/ast"
	"nilan/unit"
	"nilan/value"
)

// builtinTypeSamples maps a bare type name, as written on the right-hand
// side of an "is" expression, to a zero value of that kind. Only its
// TypeHash() is used; the value itself is discarded. Keeping these in the
// scalar/container namespace (rather than unit.ItemHash) mirrors
// value.Value.TypeHash's own disjoint-namespace guarantee, so a builtin
// type name can never collide with a user or native Item path.
var builtinTypeSamples = map[string]value.Value{
	"Unit":     value.Unit,
	"Bool":     value.Bool(false),
	"Char":     value.Char(0),
	"Byte":     value.Byte(0),
	"Int":      value.Int(0),
	"Float":    value.Float(0),
	"Bytes":    value.ByteString(nil),
	"String":   value.String(""),
	"Vec":      value.Vec(nil),
	"Tuple":    value.Tuple(nil),
	"Object":   value.Object(nil),
	"Function": value.FunctionRef(0, nil),
	"Future":   value.FutureRef(nil),
	"Stream":   value.StreamRef(nil),
}

// typeOperandName extracts the bare name a type-test's right-hand operand
// refers to, if it is a simple name (Variable) or a Path (a multi-segment
// path yields its dotted form). Anything else isn't a recognized type
// reference.
func typeOperandName(e ast.Expression) (string, bool) {
	switch n := e.(type) {
	case ast.Variable:
		return n.Name.Lexeme(), true
	case ast.Path:
		if len(n.Rest) == 0 {
			return n.First.Lexeme(), true
		}
		return n.String(), true
	}
	return "", false
}

// typeHashFor resolves a type-test operand to the type handle the VM
// compares against: a builtin kind's intrinsic hash if the name matches
// one, otherwise the Item hash of its dotted path (a native or
// script-defined type installed into the Context).
func (ac *ASTCompiler) typeHashFor(name string) uint64 {
	if sample, ok := builtinTypeSamples[name]; ok {
		return sample.TypeHash()
	}
	return unit.ItemHash(name)
}
