package compiler

import (
	"nilan/ast"
	"nilan/unit"
)

// VisitExpressionStmt evaluates an expression purely for its side effects;
// the value is always discarded (this AST has no expression that yields a
// block's value, unlike a Rust-style block-as-expression).
func (ac *ASTCompiler) VisitExpressionStmt(n ast.ExpressionStmt) any {
	ac.compileExpr(n.Expression, NeedsNone)
	return nil
}

// VisitPrintStmt is the ambient debugging aid the REPL and tests lean on.
func (ac *ASTCompiler) VisitPrintStmt(n ast.PrintStmt) any {
	ac.compileExpr(n.Expression, NeedsValue)
	ac.emit(unit.OpPrint)
	return nil
}

// VisitVarStmt declares a local binding: "let/var/const name = init;".
func (ac *ASTCompiler) VisitVarStmt(n ast.VarStmt) any {
	name := n.Name.Lexeme()
	ac.declareLocal(name)
	if n.Initializer != nil {
		ac.compileExpr(n.Initializer, NeedsValue)
	} else {
		ac.emit(unit.OpUnit)
	}
	ac.defineLocal()
	return nil
}

// VisitBlockStmt compiles a brace-delimited sequence of statements, popping
// whatever locals it declared once the enclosing scope exits.
func (ac *ASTCompiler) VisitBlockStmt(n ast.BlockStmt) any {
	ac.hoistFunctions(n.Statements)
	ac.beginScope()
	for _, stmt := range n.Statements {
		ac.curSpan = stmt.Span()
		stmt.Accept(ac)
	}
	popped := ac.endScope()
	for i := 0; i < popped; i++ {
		ac.emit(unit.OpPop)
	}
	return nil
}

// VisitIfStmt compiles "if cond { ... } elif cond { ... } else { ... }" by
// backpatching jump targets once each branch's end is known.
func (ac *ASTCompiler) VisitIfStmt(n ast.IfStmt) any {
	ac.compileExpr(n.Condition, NeedsValue)
	jumpIfFalse := ac.emitPlaceholderJump(unit.OpJumpIfNot)

	n.Then.Accept(ac)
	var endJumps []int
	endJumps = append(endJumps, ac.emitPlaceholderJump(unit.OpJump))
	ac.patchJump(jumpIfFalse)

	for _, branch := range n.ElseIfs {
		ac.compileExpr(branch.Condition, NeedsValue)
		nextJump := ac.emitPlaceholderJump(unit.OpJumpIfNot)
		branch.Body.Accept(ac)
		endJumps = append(endJumps, ac.emitPlaceholderJump(unit.OpJump))
		ac.patchJump(nextJump)
	}

	if n.Else != nil {
		n.Else.Accept(ac)
	}

	for _, pos := range endJumps {
		ac.patchJump(pos)
	}
	return nil
}

// VisitWhileStmt compiles "while cond { ... }".
func (ac *ASTCompiler) VisitWhileStmt(n ast.WhileStmt) any {
	conditionIP := ac.Unit.Len()
	ac.pushLoop(conditionIP)

	ac.compileExpr(n.Condition, NeedsValue)
	jumpIfFalse := ac.emitPlaceholderJump(unit.OpJumpIfNot)

	n.Body.Accept(ac)
	ac.emit(unit.OpJump, uint64(conditionIP))

	ac.patchJump(jumpIfFalse)
	ac.popLoop()
	return nil
}

// VisitReturnStmt compiles "return [expr];".
func (ac *ASTCompiler) VisitReturnStmt(n ast.ReturnStmt) any {
	if n.Value == nil {
		ac.emit(unit.OpReturnUnit)
		return nil
	}
	ac.compileExpr(n.Value, NeedsValue)
	ac.emit(unit.OpReturn)
	return nil
}

// VisitBreakStmt compiles "break;".
func (ac *ASTCompiler) VisitBreakStmt(n ast.BreakStmt) any {
	ac.recordBreak(ac.emitPlaceholderJump(unit.OpJump))
	return nil
}

// VisitContinueStmt compiles "continue;".
func (ac *ASTCompiler) VisitContinueStmt(n ast.ContinueStmt) any {
	ac.emit(unit.OpJump, uint64(ac.continueTarget()))
	return nil
}

// VisitFnDecl compiles a function declaration. The body is emitted inline
// in the shared instruction stream (Rune-style: one flat Unit, functions
// addressed by entry ip), guarded by a jump so the VM doesn't fall into it
// while executing the surrounding script linearly.
func (ac *ASTCompiler) VisitFnDecl(n ast.FnDecl) any {
	hash := ac.reserveFunctionHash(n)

	skip := ac.emitPlaceholderJump(unit.OpJump)
	entryIP := ac.Unit.Len()

	savedLocals, savedDepth, savedLoops := ac.locals, ac.scopeDepth, ac.loops
	ac.locals, ac.scopeDepth, ac.loops = nil, 0, nil

	ac.beginScope()
	for _, param := range n.Params {
		ac.declareLocal(param.Lexeme())
		ac.defineLocal()
	}
	ac.compileFnBody(n.Body.Statements)
	ac.endScope()

	ac.locals, ac.scopeDepth, ac.loops = savedLocals, savedDepth, savedLoops
	ac.patchJump(skip)

	kind := unit.FunctionFree
	if n.IsAsync {
		kind = unit.FunctionClosure
	}
	if err := ac.Unit.DefineFunction(hash, unit.FunctionDesc{EntryIP: entryIP, Arity: len(n.Params), Kind: kind}); err != nil {
		ac.fail(KindLinkError, "%s", err.Error())
	}
	if ac.Unit.DebugInfo != nil {
		sig := "fn " + n.Name.Lexeme() + "("
		for i, param := range n.Params {
			if i > 0 {
				sig += ", "
			}
			sig += param.Lexeme()
		}
		ac.Unit.DebugInfo.Signatures[hash] = sig + ")"
	}
	return nil
}

// compileFnBody compiles a function's statements, giving a trailing bare
// expression statement implicit-return treatment so "fn add(a, b) { a + b
// }" doesn't require a "return".
func (ac *ASTCompiler) compileFnBody(statements []ast.Stmt) {
	ac.hoistFunctions(statements)
	for i, stmt := range statements {
		ac.curSpan = stmt.Span()
		if i == len(statements)-1 {
			if exprStmt, ok := stmt.(ast.ExpressionStmt); ok {
				ac.compileExpr(exprStmt.Expression, NeedsValue)
				ac.emit(unit.OpReturn)
				return
			}
		}
		stmt.Accept(ac)
	}
	ac.emit(unit.OpReturnUnit)
}

// reserveFunctionHash computes n's item hash and, if it wasn't already
// hoisted by hoistFunctions, reserves a placeholder for it so a
// self-recursive call inside its own body can resolve.
func (ac *ASTCompiler) reserveFunctionHash(n ast.FnDecl) uint64 {
	hash := unit.ItemHash(n.Name.Lexeme())
	ac.Unit.ReserveFunction(hash, unit.FunctionDesc{EntryIP: -1, Arity: len(n.Params)})
	return hash
}

// hoistFunctions pre-registers every function declared directly in
// statements so calls appearing before a function's own textual
// declaration (mutual recursion, or simply call-before-def) still resolve
// when the compiler visits them.
func (ac *ASTCompiler) hoistFunctions(statements []ast.Stmt) {
	for _, stmt := range statements {
		if fn, ok := stmt.(ast.FnDecl); ok {
			ac.reserveFunctionHash(fn)
		}
	}
}
