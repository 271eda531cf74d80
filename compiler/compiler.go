// Package compiler lowers the AST directly to a unit.Unit: a single-pass
// tree-walking compiler, no separate IR. Expressions are visited with a
// Needs hint (Value/Type/None) so the compiler can skip pushing a value
// nobody will read, and statements drive scope/local-slot bookkeeping the
// same way a stack-based bytecode VM expects.
package compiler

import (
	"fmt"

	"nilan/ast"
	"nilan/span"
	"nilan/unit"
	"nilan/value"
)

// Needs tells an expression's Accept call what the caller intends to do
// with the produced value: push it (Value), push only a type handle for a
// type test (Type), or discard it (None: the node pops the value it pushed,
// see discardIfUnused).
type Needs int

const (
	NeedsValue Needs = iota
	NeedsType
	NeedsNone
)

// Options mirrors the compiler knobs a caller can set, analogous to
// rustc/rune's Options: which checks to run and how much debug
// provenance to keep.
type Options struct {
	LinkChecks        bool // not read by the compiler: no link check runs; a call to an unknown Item fails at run time with MissingFunction
	MemoizeInstanceFn bool // not read by the compiler; the VM's own Options.MemoizeInstanceFn controls the CallInstance cache
	DebugInfo         bool // record per-instruction source spans
	Bytecode          bool // not read by the compiler; callers serialize the Unit with unit.Serialize themselves
}

// DefaultOptions mirrors what the REPL and `nilan run` use absent explicit
// flags: LinkChecks and MemoizeInstanceFn set (neither changes what the
// compiler emits), no debug info.
func DefaultOptions() Options {
	return Options{LinkChecks: true, MemoizeInstanceFn: true}
}

// loopCtx tracks the patch sites a break/continue inside the current loop
// needs filled in once the loop's bounds are known.
type loopCtx struct {
	conditionIP int
	breakJumps  []int
}

// ASTCompiler is a visitor that lowers AST nodes directly into a unit.Unit.
// It implements both ast.ExpressionVisitor and ast.StmtVisitor to traverse
// and compile the syntax tree in one pass.
type ASTCompiler struct {
	Unit    *unit.Unit
	Options Options

	locals     []Local
	scopeDepth uint16
	loops      []loopCtx

	needs   Needs
	curSpan span.Span

	sourceID int
}

// NewASTCompiler creates a compiler using DefaultOptions.
func NewASTCompiler() *ASTCompiler {
	return NewASTCompilerWithOptions(DefaultOptions())
}

// NewASTCompilerWithOptions creates a compiler with explicit Options.
func NewASTCompilerWithOptions(opts Options) *ASTCompiler {
	return &ASTCompiler{
		Unit:    unit.New(opts.DebugInfo),
		Options: opts,
		locals:  []Local{},
	}
}

// CompileAST lowers a sequence of top-level statements into the compiler's
// Unit, returning it once finished. Compile errors are raised via panic
// from deep inside the visitor methods and recovered here.
func (ac *ASTCompiler) CompileAST(statements []ast.Stmt) (u *unit.Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case CompileError:
				err = v
			case DeveloperError:
				err = v
			default:
				panic(r)
			}
		}
	}()

	ac.hoistFunctions(statements)
	for i, stmt := range statements {
		ac.curSpan = stmt.Span()
		if i == len(statements)-1 {
			if exprStmt, ok := stmt.(ast.ExpressionStmt); ok {
				ac.compileExpr(exprStmt.Expression, NeedsValue)
				ac.emit(unit.OpReturn)
				return ac.Unit, nil
			}
		}
		stmt.Accept(ac)
	}

	ac.emit(unit.OpReturnUnit)
	return ac.Unit, nil
}

// emit assembles one instruction into the Unit, recording debug info when
// enabled.
func (ac *ASTCompiler) emit(op unit.Opcode, operands ...uint64) int {
	ip, err := ac.Unit.Emit(op, operands...)
	if err != nil {
		panic(DeveloperError{Message: err.Error()})
	}
	if ac.Options.DebugInfo {
		ac.Unit.RecordDebug(ip, ac.sourceID, ac.curSpan, "")
	}
	return ip
}

// emitPlaceholderJump emits a jump instruction with a zero target and
// returns its ip, to be filled in later via patchJump.
func (ac *ASTCompiler) emitPlaceholderJump(op unit.Opcode) int {
	return ac.emit(op, 0)
}

// patchJump rewrites a previously-emitted jump's target to the current
// instruction pointer (or an explicit target).
func (ac *ASTCompiler) patchJump(pos int) {
	ac.patchJumpTo(pos, ac.Unit.Len())
}

func (ac *ASTCompiler) patchJumpTo(pos int, target int) {
	if err := ac.Unit.PatchJump(pos, target); err != nil {
		panic(DeveloperError{Message: err.Error()})
	}
}

// pushConstant appends a scalar constant to the pool and emits the push instruction for
// it.
func (ac *ASTCompiler) pushConstant(v value.Value) {
	idx := ac.Unit.AddConstant(v)
	ac.emit(unit.OpPush, uint64(idx))
}

// compileExpr visits an expression under an explicit Needs hint, restoring
// the compiler's previous hint afterwards so nested calls compose.
func (ac *ASTCompiler) compileExpr(e ast.Expression, needs Needs) {
	saved, savedSpan := ac.needs, ac.curSpan
	ac.needs, ac.curSpan = needs, e.Span()
	e.Accept(ac)
	ac.needs, ac.curSpan = saved, savedSpan
}

// discardIfUnused emits a Pop when the current expression's value was
// compiled but the surrounding context (an expression statement that isn't
// a block's final value) doesn't need it.
func (ac *ASTCompiler) discardIfUnused() {
	if ac.needs == NeedsNone {
		ac.emit(unit.OpPop)
	}
}

func (ac *ASTCompiler) fail(kind CompileErrorKind, format string, args ...any) {
	panic(CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}
