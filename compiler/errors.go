package compiler

import "fmt"

// DeveloperError signals a compiler invariant was violated: a bug in the
// compiler itself rather than a problem with the source being compiled.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}

// CompileErrorKind classifies a CompileError by what went wrong while
// lowering the AST to bytecode.
type CompileErrorKind string

const (
	KindMissingLocal          CompileErrorKind = "MissingLocal"
	KindUnsupportedAssignExpr CompileErrorKind = "UnsupportedAssignExpr"
	KindUnsupportedBinaryExpr CompileErrorKind = "UnsupportedBinaryExpr"
	KindUnsupportedBinaryOp   CompileErrorKind = "UnsupportedBinaryOp"
	KindUnsupportedTupleIndex CompileErrorKind = "UnsupportedTupleIndex"
	KindDuplicateName         CompileErrorKind = "DuplicateName"
	KindLinkError             CompileErrorKind = "LinkError"
	KindBreakOutsideLoop      CompileErrorKind = "BreakOutsideLoop"
	KindContinueOutsideLoop   CompileErrorKind = "ContinueOutsideLoop"
)

// CompileError is raised for a problem with the source being compiled, as
// opposed to DeveloperError which signals a compiler bug.
type CompileError struct {
	Kind    CompileErrorKind
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("💥 CompileError::%s: %s", e.Kind, e.Message)
}
