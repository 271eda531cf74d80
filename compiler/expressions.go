package compiler

import (
	"nilan/ast"
	"nilan/token"
	"nilan/unit"
	"nilan/value"
)

var binaryOpcodes = map[token.TokenType]unit.Opcode{
	token.ADD:    unit.OpAdd,
	token.SUB:    unit.OpSub,
	token.MULT:   unit.OpMul,
	token.DIV:    unit.OpDiv,
	token.PERCENT: unit.OpRem,
	token.AMP:    unit.OpBitAnd,
	token.PIPE:   unit.OpBitOr,
	token.CARET:  unit.OpBitXor,
	token.SHL:    unit.OpShl,
	token.SHR:    unit.OpShr,

	token.EQUAL_EQUAL:  unit.OpEq,
	token.NOT_EQUAL:    unit.OpNeq,
	token.LESS:         unit.OpLt,
	token.LARGER:       unit.OpGt,
	token.LESS_EQUAL:   unit.OpLte,
	token.LARGER_EQUAL: unit.OpGte,
}

var compoundAssignOpcodes = map[token.TokenType]unit.Opcode{
	token.ADD_ASSIGN:     unit.OpAddAssign,
	token.SUB_ASSIGN:     unit.OpSubAssign,
	token.MULT_ASSIGN:    unit.OpMulAssign,
	token.DIV_ASSIGN:     unit.OpDivAssign,
	token.PERCENT_ASSIGN: unit.OpRemAssign,
	token.AMP_ASSIGN:     unit.OpBitAndAssign,
	token.PIPE_ASSIGN:    unit.OpBitOrAssign,
	token.CARET_ASSIGN:   unit.OpBitXorAssign,
	token.SHL_ASSIGN:     unit.OpShlAssign,
	token.SHR_ASSIGN:     unit.OpShrAssign,
}

// VisitBinary handles arithmetic, bitwise, comparison, "is"/"is not", and
// (since the parser folds "&&"/"||" into Binary rather than Logical)
// short-circuiting boolean operators.
func (ac *ASTCompiler) VisitBinary(n ast.Binary) any {
	switch n.Operator.Kind {
	case token.ANDAND, token.OROR:
		ac.compileShortCircuit(n.Left, n.Operator.Kind, n.Right)
		ac.discardIfUnused()
		return nil
	case token.IS:
		ac.compileExpr(n.Left, NeedsValue)
		ac.compileTypeOperand(n.Right)
		ac.emit(unit.OpIs)
		ac.discardIfUnused()
		return nil
	}

	op, ok := binaryOpcodes[n.Operator.Kind]
	if !ok {
		ac.fail(KindUnsupportedBinaryOp, "unsupported binary operator %q", n.Operator.Lexeme())
	}
	ac.compileExpr(n.Left, NeedsValue)
	ac.compileExpr(n.Right, NeedsValue)
	ac.emit(op)
	ac.discardIfUnused()
	return nil
}

// compileTypeOperand compiles the right-hand side of an "is" test. A bare
// name or path is resolved directly to a type handle (the common case);
// anything else is compiled as an ordinary value already holding a Type.
func (ac *ASTCompiler) compileTypeOperand(e ast.Expression) {
	if name, ok := typeOperandName(e); ok {
		ac.emit(unit.OpType, ac.typeHashFor(name))
		return
	}
	ac.compileExpr(e, NeedsType)
}

// compileShortCircuit lowers "&&"/"||" with jumps. OpJumpIfNot consumes the
// left value; when it already decides the outcome the result is true (for
// "||") or false (for "&&") and the right side is not evaluated, otherwise
// the right side's value is the result.
func (ac *ASTCompiler) compileShortCircuit(left ast.Expression, op token.TokenType, right ast.Expression) {
	ac.compileExpr(left, NeedsValue)
	jumpIfFalse := ac.emitPlaceholderJump(unit.OpJumpIfNot)

	if op == token.OROR {
		ac.pushConstant(value.Bool(true))
		jumpEnd := ac.emitPlaceholderJump(unit.OpJump)
		ac.patchJump(jumpIfFalse)
		ac.compileExpr(right, NeedsValue)
		ac.patchJump(jumpEnd)
		return
	}

	// AND: short-circuit on a falsy left operand.
	ac.compileExpr(right, NeedsValue)
	jumpEnd := ac.emitPlaceholderJump(unit.OpJump)
	ac.patchJump(jumpIfFalse)
	ac.pushConstant(value.Bool(false))
	ac.patchJump(jumpEnd)
}

// VisitLogicalExpression exists for completeness with ast.Logical, which
// the current parser never constructs (it folds "&&"/"||" into Binary);
// kept so a future parser change doesn't silently lose short-circuiting.
func (ac *ASTCompiler) VisitLogicalExpression(n ast.Logical) any {
	ac.compileShortCircuit(n.Left, n.Operator.Kind, n.Right)
	ac.discardIfUnused()
	return nil
}

// VisitUnary handles "-x" and "!x".
func (ac *ASTCompiler) VisitUnary(n ast.Unary) any {
	ac.compileExpr(n.Right, NeedsValue)
	switch n.Operator.Kind {
	case token.SUB:
		ac.emit(unit.OpNeg)
	case token.BANG:
		ac.emit(unit.OpNot)
	}
	ac.discardIfUnused()
	return nil
}

// VisitLiteral pushes a literal's runtime value. Scalars go through the
// constant pool; strings and byte-strings are interned into the static
// string table so the constant pool stays scalar-only (see unit.Serialize).
func (ac *ASTCompiler) VisitLiteral(n ast.Literal) any {
	switch v := n.Value.(type) {
	case nil:
		ac.pushConstant(value.Unit)
	case bool:
		ac.pushConstant(value.Bool(v))
	case int64:
		ac.pushConstant(value.Int(v))
	case float64:
		ac.pushConstant(value.Float(v))
	case string:
		slot := ac.Unit.InternString(v)
		ac.emit(unit.OpString, uint64(slot))
	case []byte:
		slot := ac.Unit.InternString(string(v))
		ac.emit(unit.OpByteString, uint64(slot))
	default:
		ac.fail(KindUnsupportedBinaryExpr, "unsupported literal value of type %T", v)
	}
	ac.discardIfUnused()
	return nil
}

// VisitGrouping compiles a parenthesized expression transparently.
func (ac *ASTCompiler) VisitGrouping(n ast.Grouping) any {
	ac.compileExpr(n.Expression, ac.needs)
	return nil
}

// VisitVariableExpression loads a local's current value. A bare name that
// isn't a local but does name a declared function falls back to a
// first-class function reference, since "fn foo(){}" followed by a bare
// "foo" both parse as the same Variable node.
func (ac *ASTCompiler) VisitVariableExpression(n ast.Variable) any {
	name := n.Name.Lexeme()
	if slot := ac.resolveLocal(name); slot != -1 {
		if !ac.locals[slot].initialized {
			ac.fail(KindMissingLocal, "cannot access uninitialized variable '%s'", name)
		}
		ac.emit(unit.OpCopy, uint64(slot))
		ac.discardIfUnused()
		return nil
	}
	hash := unit.ItemHash(name)
	if _, ok := ac.Unit.Function(hash); ok {
		ac.emit(unit.OpLoadFn, hash)
		ac.discardIfUnused()
		return nil
	}
	ac.fail(KindMissingLocal, "name '%s' is not defined", name)
	return nil
}

// VisitPathExpression pushes a first-class reference to the Item a dotted
// path names, used when a function is referenced outside of call position
// (e.g. "let f = std.io.print; f(x)").
func (ac *ASTCompiler) VisitPathExpression(n ast.Path) any {
	ac.emit(unit.OpLoadFn, unit.ItemHash(n.String()))
	ac.discardIfUnused()
	return nil
}

// VisitAssignExpression compiles "name = value", leaving the assigned value
// on the stack as the expression's result.
func (ac *ASTCompiler) VisitAssignExpression(n ast.Assign) any {
	ac.compileExpr(n.Value, NeedsValue)
	slot := ac.resolveLocal(n.Name.Lexeme())
	if slot == -1 {
		ac.fail(KindMissingLocal, "name '%s' is not defined", n.Name.Lexeme())
	}
	ac.locals[slot].initialized = true
	ac.emit(unit.OpReplace, uint64(slot))
	ac.discardIfUnused()
	return nil
}

// VisitCompoundAssignExpression compiles "name += value" and its siblings.
func (ac *ASTCompiler) VisitCompoundAssignExpression(n ast.CompoundAssign) any {
	op, ok := compoundAssignOpcodes[n.Operator.Kind]
	if !ok {
		ac.fail(KindUnsupportedAssignExpr, "unsupported compound assignment operator %q", n.Operator.Lexeme())
	}
	slot := ac.mustResolveLocal(n.Name.Lexeme())
	ac.compileExpr(n.Value, NeedsValue)
	ac.emit(op, uint64(slot))
	ac.discardIfUnused()
	return nil
}

// VisitIndexGet compiles "target[index]". Index is compiled before target,
// matching the order the reference compiler uses for ExprIndexGet.
func (ac *ASTCompiler) VisitIndexGet(n ast.IndexGet) any {
	ac.compileExpr(n.Index, NeedsValue)
	ac.compileExpr(n.Target, NeedsValue)
	ac.emit(unit.OpIndexGet)
	ac.discardIfUnused()
	return nil
}

// VisitIndexSet compiles "target[index] = value", same index-before-target
// order as VisitIndexGet.
func (ac *ASTCompiler) VisitIndexSet(n ast.IndexSet) any {
	ac.compileExpr(n.Index, NeedsValue)
	ac.compileExpr(n.Target, NeedsValue)
	ac.compileExpr(n.Value, NeedsValue)
	ac.emit(unit.OpIndexSet)
	ac.discardIfUnused()
	return nil
}

// VisitFieldGet compiles "target.field" as an index-get keyed by the
// field's interned name, same index-before-target order as VisitIndexGet.
func (ac *ASTCompiler) VisitFieldGet(n ast.FieldGet) any {
	slot := ac.Unit.InternString(n.Field.Lexeme())
	ac.emit(unit.OpString, uint64(slot))
	ac.compileExpr(n.Target, NeedsValue)
	ac.emit(unit.OpIndexGet)
	ac.discardIfUnused()
	return nil
}

// VisitFieldSet compiles "target.field = value". rhs is evaluated before
// target, matching the reference compiler's documented evaluation order for
// field assignment; rhs is stashed in a scratch local so it can still be fed
// to IndexSet in the operand order the VM expects (index, target, value).
func (ac *ASTCompiler) VisitFieldSet(n ast.FieldSet) any {
	ac.compileExpr(n.Value, NeedsValue)
	ac.beginScope()
	rhsSlot := ac.declareLocal("$field_set.rhs")
	ac.defineLocal()

	fieldSlot := ac.Unit.InternString(n.Field.Lexeme())
	ac.emit(unit.OpString, uint64(fieldSlot))
	ac.compileExpr(n.Target, NeedsValue)
	ac.emit(unit.OpCopy, uint64(rhsSlot))
	ac.emit(unit.OpIndexSet)

	popped := ac.endScope()
	ac.emit(unit.OpReplace, uint64(rhsSlot))
	for p := 0; p < popped; p++ {
		ac.emit(unit.OpPop)
	}
	ac.discardIfUnused()
	return nil
}

// VisitTupleIndexGet compiles "target.N".
func (ac *ASTCompiler) VisitTupleIndexGet(n ast.TupleIndexGet) any {
	if n.Index < 0 {
		ac.fail(KindUnsupportedTupleIndex, "tuple index %d is negative", n.Index)
	}
	ac.compileExpr(n.Target, NeedsValue)
	ac.emit(unit.OpTupleIndexGet, uint64(n.Index))
	ac.discardIfUnused()
	return nil
}

// VisitTupleIndexSet compiles "target.N = value".
func (ac *ASTCompiler) VisitTupleIndexSet(n ast.TupleIndexSet) any {
	if n.Index < 0 {
		ac.fail(KindUnsupportedTupleIndex, "tuple index %d is negative", n.Index)
	}
	ac.compileExpr(n.Target, NeedsValue)
	ac.compileExpr(n.Value, NeedsValue)
	ac.emit(unit.OpTupleIndexSet, uint64(n.Index))
	ac.discardIfUnused()
	return nil
}

// VisitCall compiles a call to a named Item: "path(args...)". A bare name
// that resolves to a local is called as the function value it holds.
func (ac *ASTCompiler) VisitCall(n ast.Call) any {
	if len(n.Callee.Rest) == 0 && ac.resolveLocal(n.Callee.First.Lexeme()) != -1 {
		return ac.VisitCallFn(ast.CallFn{Callee: ast.Variable{Name: n.Callee.First}, Args: n.Args, Sp: n.Sp})
	}
	for _, arg := range n.Args {
		ac.compileExpr(arg, NeedsValue)
	}
	hash := unit.ItemHash(n.Callee.String())
	ac.emit(unit.OpCall, hash, uint64(len(n.Args)))
	ac.discardIfUnused()
	return nil
}

// VisitCallFn compiles calling a value already on the stack:
// "fnExpr(args...)".
func (ac *ASTCompiler) VisitCallFn(n ast.CallFn) any {
	ac.compileExpr(n.Callee, NeedsValue)
	for _, arg := range n.Args {
		ac.compileExpr(arg, NeedsValue)
	}
	ac.emit(unit.OpCallFn, uint64(len(n.Args)))
	ac.discardIfUnused()
	return nil
}

// VisitVecLiteral compiles "[a, b, c]".
func (ac *ASTCompiler) VisitVecLiteral(n ast.VecLiteral) any {
	for _, el := range n.Elements {
		ac.compileExpr(el, NeedsValue)
	}
	ac.emit(unit.OpVec, uint64(len(n.Elements)))
	ac.discardIfUnused()
	return nil
}

// VisitTupleLiteral compiles "(a, b, c)".
func (ac *ASTCompiler) VisitTupleLiteral(n ast.TupleLiteral) any {
	for _, el := range n.Elements {
		ac.compileExpr(el, NeedsValue)
	}
	ac.emit(unit.OpTuple, uint64(len(n.Elements)))
	ac.discardIfUnused()
	return nil
}

// VisitObjectLiteral compiles "#{a: 1, b: 2}". Field values are pushed in
// source order; the VM pops them in that same order and zips them with the
// interned key set.
func (ac *ASTCompiler) VisitObjectLiteral(n ast.ObjectLiteral) any {
	keys := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		keys[i] = f.Key.Lexeme()
		ac.compileExpr(f.Value, NeedsValue)
	}
	slot := ac.Unit.InternObjectKeys(keys)
	ac.emit(unit.OpObject, uint64(slot))
	ac.discardIfUnused()
	return nil
}

// VisitAwait compiles "expr.await".
func (ac *ASTCompiler) VisitAwait(n ast.Await) any {
	ac.compileExpr(n.Target, NeedsValue)
	ac.emit(unit.OpAwait)
	ac.discardIfUnused()
	return nil
}

// VisitSelect compiles "select { name = future() => body, ... }". Each
// branch's future expression is pushed, OpSelect races them and leaves the
// winning branch's index and resolved value on the stack. OpCopy/OpReplace
// address slots relative to the current frame's base, not the stack top, so
// the index and result are immediately claimed as two ordinary (anonymous)
// locals the rest of the compile can address by slot, the same way any other
// local is tracked; the compiler then emits an if/elif chain over the index
// local to bind Name and run the matching body, mirroring how VisitIfStmt
// threads jumps.
func (ac *ASTCompiler) VisitSelect(n ast.Select) any {
	needsValue := ac.needs == NeedsValue

	for _, branch := range n.Branches {
		ac.compileExpr(branch.Future, NeedsValue)
	}
	ac.emit(unit.OpSelect, uint64(len(n.Branches)))
	// Stack: [..., winningIndex, resolvedValue]

	ac.beginScope()
	idxSlot := ac.declareLocal("$select.index")
	ac.defineLocal()
	resultSlot := ac.declareLocal("$select.result")
	ac.defineLocal()

	var endJumps []int
	for i, branch := range n.Branches {
		ac.emit(unit.OpCopy, uint64(idxSlot))
		ac.pushConstant(value.Int(int64(i)))
		ac.emit(unit.OpEq)
		skip := ac.emitPlaceholderJump(unit.OpJumpIfNot)

		ac.beginScope()
		ac.emit(unit.OpCopy, uint64(resultSlot))
		nameSlot := ac.declareLocal(branch.Name.Lexeme())
		ac.defineLocal()
		ac.compileExpr(branch.Body, ac.needs)
		if needsValue {
			// Overwrite the branch's own local slot with the body's result
			// so the upcoming endScope pops land on it instead of on a
			// second, unaccounted-for copy of the value.
			ac.emit(unit.OpReplace, uint64(nameSlot))
		}
		popped := ac.endScope()
		for p := 0; p < popped; p++ {
			ac.emit(unit.OpPop)
		}

		if i < len(n.Branches)-1 {
			endJumps = append(endJumps, ac.emitPlaceholderJump(unit.OpJump))
		}
		ac.patchJump(skip)
	}
	for _, pos := range endJumps {
		ac.patchJump(pos)
	}

	popped := ac.endScope()
	if needsValue {
		ac.emit(unit.OpReplace, uint64(idxSlot))
	}
	for p := 0; p < popped; p++ {
		ac.emit(unit.OpPop)
	}
	return nil
}
