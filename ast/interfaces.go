// Package ast defines the syntax tree produced by the parser and consumed
// by the compiler. Every node carries its source span and is visited
// read-only by downstream passes.
package ast

import "nilan/span"

// ExpressionVisitor is implemented by anything that walks expression nodes
// (the compiler, an AST printer, a constant folder).
type ExpressionVisitor interface {
	VisitBinary(node Binary) any
	VisitUnary(node Unary) any
	VisitLiteral(node Literal) any
	VisitGrouping(node Grouping) any
	VisitVariableExpression(node Variable) any
	VisitPathExpression(node Path) any
	VisitAssignExpression(node Assign) any
	VisitCompoundAssignExpression(node CompoundAssign) any
	VisitLogicalExpression(node Logical) any
	VisitIndexGet(node IndexGet) any
	VisitIndexSet(node IndexSet) any
	VisitFieldGet(node FieldGet) any
	VisitFieldSet(node FieldSet) any
	VisitTupleIndexGet(node TupleIndexGet) any
	VisitTupleIndexSet(node TupleIndexSet) any
	VisitCall(node Call) any
	VisitCallFn(node CallFn) any
	VisitVecLiteral(node VecLiteral) any
	VisitTupleLiteral(node TupleLiteral) any
	VisitObjectLiteral(node ObjectLiteral) any
	VisitAwait(node Await) any
	VisitSelect(node Select) any
}

// StmtVisitor is implemented by anything that walks statement nodes.
type StmtVisitor interface {
	VisitExpressionStmt(node ExpressionStmt) any
	VisitPrintStmt(node PrintStmt) any
	VisitVarStmt(node VarStmt) any
	VisitBlockStmt(node BlockStmt) any
	VisitIfStmt(node IfStmt) any
	VisitWhileStmt(node WhileStmt) any
	VisitReturnStmt(node ReturnStmt) any
	VisitBreakStmt(node BreakStmt) any
	VisitContinueStmt(node ContinueStmt) any
	VisitFnDecl(node FnDecl) any
}

// Expression is the interface every expression node implements. Span
// returns the node's total source range, inclusive of every child.
type Expression interface {
	Accept(v ExpressionVisitor) any
	Span() span.Span
}

// Stmt is the interface every statement node implements.
type Stmt interface {
	Accept(v StmtVisitor) any
	Span() span.Span
}
