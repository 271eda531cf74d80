// Package parser implements a recursive-descent parser with a one-token
// lookahead cursor over a token stream, producing an ast.Stmt tree.
//
// https://en.wikipedia.org/wiki/Recursive_descent_parser
package parser

import (
	"nilan/ast"
	"nilan/span"
	"nilan/token"
)

// precedence gives the binding power of each left-associative binary
// operator, used by the table-driven operator-precedence climb. Operators
// not present here (assignment, is/is-not) are handled by their own
// dedicated productions, per the grammar in the operator table.
var precedence = map[token.TokenType]int{
	token.MULT: 100, token.DIV: 100, token.PERCENT: 100,
	token.ADD: 90, token.SUB: 90,
	token.SHL: 80, token.SHR: 80,
	token.AMP:   70,
	token.CARET: 60,
	token.PIPE:  50,
	token.LESS: 40, token.LESS_EQUAL: 40, token.LARGER: 40, token.LARGER_EQUAL: 40,
	token.EQUAL_EQUAL: 40, token.NOT_EQUAL: 40,
	token.ANDAND: 30,
	token.OROR:   20,
}

var assignTokenTypes = []token.TokenType{
	token.ASSIGN, token.ADD_ASSIGN, token.SUB_ASSIGN, token.MULT_ASSIGN,
	token.DIV_ASSIGN, token.PERCENT_ASSIGN, token.AMP_ASSIGN, token.CARET_ASSIGN,
	token.PIPE_ASSIGN, token.SHL_ASSIGN, token.SHR_ASSIGN,
}

// compoundAssignBinaryOp maps each compound-assignment operator to the
// plain binary operator it desugars to on non-local targets (fields,
// indices, tuple indices), which have no dedicated compound-assign
// opcode the way a local slot does.
var compoundAssignBinaryOp = map[token.TokenType]token.TokenType{
	token.ADD_ASSIGN:     token.ADD,
	token.SUB_ASSIGN:     token.SUB,
	token.MULT_ASSIGN:    token.MULT,
	token.DIV_ASSIGN:     token.DIV,
	token.PERCENT_ASSIGN: token.PERCENT,
	token.AMP_ASSIGN:     token.AMP,
	token.CARET_ASSIGN:   token.CARET,
	token.PIPE_ASSIGN:    token.PIPE,
	token.SHL_ASSIGN:     token.SHL,
	token.SHR_ASSIGN:     token.SHR,
}

// desugarCompoundValue rewrites "rhs" of a compound assignment "get op= rhs"
// into "get op rhs", so index/field/tuple-index targets (which have no
// compound-assign opcode of their own) can be compiled as an ordinary
// binary expression feeding an ordinary Set node.
func desugarCompoundValue(get ast.Expression, op token.Token, rhs ast.Expression) ast.Expression {
	baseOp := token.CreateToken(compoundAssignBinaryOp[op.Kind], op.Span)
	return ast.Binary{Left: get, Operator: baseOp, Right: rhs}
}

// Parser is a cursor over a token slice, always one token ahead of the
// position last consumed.
type Parser struct {
	tokens   []token.Token
	position int
}

// Make constructs a Parser over the tokens produced by the lexer.
func Make(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) peek() token.Token { return p.tokens[p.position] }

func (p *Parser) previous() token.Token { return p.tokens[p.position-1] }

func (p *Parser) advance() token.Token {
	if !p.isFinished() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) isFinished() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) checkType(kind token.TokenType) bool {
	if p.isFinished() && kind != token.EOF {
		return false
	}
	return p.peek().Kind == kind
}

func (p *Parser) isMatch(kinds ...token.TokenType) bool {
	for _, kind := range kinds {
		if p.checkType(kind) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(kind token.TokenType, message string) (token.Token, error) {
	if p.checkType(kind) {
		return p.advance(), nil
	}
	cur := p.peek()
	if cur.Kind == token.EOF {
		return token.Token{}, newParseError(UnexpectedEof, cur.Span, message)
	}
	return token.Token{}, newParseError(ExpectedToken, cur.Span, message)
}

func (p *Parser) optionalSemicolon() {
	p.isMatch(token.SEMICOLON)
}

// Parse parses the entire token stream into a slice of top-level statements,
// collecting every error encountered rather than stopping at the first.
func (p *Parser) Parse() ([]ast.Stmt, []error) {
	var statements []ast.Stmt
	var errs []error

	for !p.isFinished() {
		stmt, err := p.declaration()
		if err != nil {
			errs = append(errs, err)
			if !p.isFinished() {
				p.advance()
			}
			continue
		}
		statements = append(statements, stmt)
	}
	return statements, errs
}

func (p *Parser) declaration() (ast.Stmt, error) {
	if p.isMatch(token.ASYNC) {
		return p.fnDeclaration(true)
	}
	if p.isMatch(token.FUNC) {
		return p.fnDeclaration(false)
	}
	if p.isMatch(token.LET, token.VAR, token.CONST) {
		return p.variableDeclaration()
	}
	return p.statement()
}

func (p *Parser) fnDeclaration(isAsync bool) (ast.Stmt, error) {
	start := p.previous().Span
	name, err := p.consume(token.IDENTIFIER, "expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LPA, "expected '(' after function name"); err != nil {
		return nil, err
	}
	var params []token.Token
	if !p.checkType(token.RPA) {
		for {
			param, err := p.consume(token.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.isMatch(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPA, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LCUR, "expected '{' before function body"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.FnDecl{
		Name:    name,
		Params:  params,
		Body:    body,
		IsAsync: isAsync,
		Sp:      start.Join(body.Sp),
	}, nil
}

func (p *Parser) variableDeclaration() (ast.Stmt, error) {
	start := p.previous().Span
	name, err := p.consume(token.IDENTIFIER, "expected variable name")
	if err != nil {
		return nil, err
	}
	var initializer ast.Expression
	if p.isMatch(token.ASSIGN) {
		initializer, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	end := name.Span
	if initializer != nil {
		end = initializer.Span()
	}
	p.optionalSemicolon()
	return ast.VarStmt{Name: name, Initializer: initializer, Sp: start.Join(end)}, nil
}

func (p *Parser) statement() (ast.Stmt, error) {
	switch {
	case p.isMatch(token.PRINT):
		return p.printStatement()
	case p.isMatch(token.LCUR):
		return p.block()
	case p.isMatch(token.IF):
		return p.ifStatement()
	case p.isMatch(token.WHILE):
		return p.whileStatement()
	case p.isMatch(token.RETURN):
		return p.returnStatement()
	case p.isMatch(token.BREAK):
		sp := p.previous().Span
		p.optionalSemicolon()
		return ast.BreakStmt{Sp: sp}, nil
	case p.isMatch(token.CONTINUE):
		sp := p.previous().Span
		p.optionalSemicolon()
		return ast.ContinueStmt{Sp: sp}, nil
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return ast.ExpressionStmt{Expression: expr}, nil
}

func (p *Parser) printStatement() (ast.Stmt, error) {
	start := p.previous().Span
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return ast.PrintStmt{Expression: expr, Sp: start.Join(expr.Span())}, nil
}

func (p *Parser) returnStatement() (ast.Stmt, error) {
	start := p.previous().Span
	if p.checkType(token.SEMICOLON) || p.checkType(token.RCUR) || p.isFinished() {
		p.optionalSemicolon()
		return ast.ReturnStmt{Sp: start}, nil
	}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return ast.ReturnStmt{Value: expr, Sp: start.Join(expr.Span())}, nil
}

func (p *Parser) whileStatement() (ast.Stmt, error) {
	start := p.previous().Span
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LCUR, "expected '{' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Condition: cond, Body: body, Sp: start.Join(body.Sp)}, nil
}

func (p *Parser) ifStatement() (ast.Stmt, error) {
	start := p.previous().Span
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LCUR, "expected '{' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	end := then.Sp

	var elseIfs []ast.IfBranch
	var elseBlock *ast.BlockStmt
	for p.isMatch(token.ELIF) {
		elifCond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.LCUR, "expected '{' after elif condition"); err != nil {
			return nil, err
		}
		elifBody, err := p.block()
		if err != nil {
			return nil, err
		}
		elseIfs = append(elseIfs, ast.IfBranch{Condition: elifCond, Body: elifBody})
		end = elifBody.Sp
	}
	if p.isMatch(token.ELSE) {
		if _, err := p.consume(token.LCUR, "expected '{' after else"); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		elseBlock = &body
		end = body.Sp
	}

	return ast.IfStmt{
		Condition: cond,
		Then:      then,
		ElseIfs:   elseIfs,
		Else:      elseBlock,
		Sp:        start.Join(end),
	}, nil
}

// block parses statements up to and including the closing '}'; the opening
// '{' must already have been consumed by the caller.
func (p *Parser) block() (ast.BlockStmt, error) {
	start := p.previous().Span
	var statements []ast.Stmt
	for !p.checkType(token.RCUR) && !p.isFinished() {
		stmt, err := p.declaration()
		if err != nil {
			return ast.BlockStmt{}, err
		}
		statements = append(statements, stmt)
	}
	closing, err := p.consume(token.RCUR, "expected '}' to close block")
	if err != nil {
		return ast.BlockStmt{}, err
	}
	return ast.BlockStmt{Statements: statements, Sp: start.Join(closing.Span)}, nil
}

// expression is the entry point for parsing any expression.
func (p *Parser) expression() (ast.Expression, error) {
	return p.assignment()
}

// assignment parses the lowest-precedence, right-associative tier: plain
// and compound assignment, only valid on certain lhs shapes.
func (p *Parser) assignment() (ast.Expression, error) {
	left, err := p.binary(precedence[token.OROR])
	if err != nil {
		return nil, err
	}
	if !p.isMatch(assignTokenTypes...) {
		return left, nil
	}
	op := p.previous()
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}

	isPlain := op.Kind == token.ASSIGN

	switch lhs := left.(type) {
	case ast.Variable:
		if isPlain {
			return ast.Assign{Name: lhs.Name, Value: value}, nil
		}
		return ast.CompoundAssign{Name: lhs.Name, Operator: op, Value: value}, nil
	case ast.IndexGet:
		if isPlain {
			return ast.IndexSet{Target: lhs.Target, Index: lhs.Index, Value: value}, nil
		}
		return ast.IndexSet{Target: lhs.Target, Index: lhs.Index, Value: desugarCompoundValue(lhs, op, value)}, nil
	case ast.FieldGet:
		if isPlain {
			return ast.FieldSet{Target: lhs.Target, Field: lhs.Field, Value: value}, nil
		}
		return ast.FieldSet{Target: lhs.Target, Field: lhs.Field, Value: desugarCompoundValue(lhs, op, value)}, nil
	case ast.TupleIndexGet:
		if isPlain {
			return ast.TupleIndexSet{Target: lhs.Target, Index: lhs.Index, Value: value}, nil
		}
		return ast.TupleIndexSet{Target: lhs.Target, Index: lhs.Index, Value: desugarCompoundValue(lhs, op, value)}, nil
	}
	return nil, newParseError(ExpectedToken, op.Span, "unsupported assignment target")
}

// binary is the table-driven precedence climb: it consumes the left-hand
// isExpr, then while the next token is a binary operator of precedence ≥
// min it recurses with min = prec(op) + 1 (every listed operator is
// left-associative).
func (p *Parser) binary(min int) (ast.Expression, error) {
	left, err := p.isExpr()
	if err != nil {
		return nil, err
	}
	for {
		kind := p.peek().Kind
		prec, ok := precedence[kind]
		if !ok || prec < min {
			return left, nil
		}
		op := p.advance()
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Operator: op, Right: right}
	}
}

// isExpr handles "is"/"is not", the tightest-binding binary operator; "is
// not" is represented as "!(x is T)".
func (p *Parser) isExpr() (ast.Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.checkType(token.IS) {
		op := p.advance()
		negate := p.isMatch(token.NOT)
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		bin := ast.Binary{Left: left, Operator: op, Right: right}
		if negate {
			bang := token.CreateToken(token.BANG, op.Span)
			left = ast.Unary{Operator: bang, Right: bin, Sp: bin.Span()}
		} else {
			left = bin
		}
	}
	return left, nil
}

func (p *Parser) unary() (ast.Expression, error) {
	if p.isMatch(token.BANG, token.SUB) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: op, Right: right, Sp: op.Span.Join(right.Span())}, nil
	}
	return p.postfix()
}

// postfix parses a primary expression followed by any chain of call,
// index, field, tuple-index, or await suffixes.
func (p *Parser) postfix() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isMatch(token.LPA):
			args, closeSp, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			expr = p.buildCall(expr, args, closeSp)
		case p.isMatch(token.LBRACKET):
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			closing, err := p.consume(token.RBRACKET, "expected ']' after index expression")
			if err != nil {
				return nil, err
			}
			expr = ast.IndexGet{Target: expr, Index: idx, Sp: expr.Span().Join(closing.Span)}
		case p.isMatch(token.DOT):
			if p.checkType(token.AWAIT) {
				awaitTok := p.advance()
				expr = ast.Await{Target: expr, Sp: expr.Span().Join(awaitTok.Span)}
				continue
			}
			if p.checkType(token.INT) {
				idxTok := p.advance()
				idx := int(idxTok.Literal.(int64))
				expr = ast.TupleIndexGet{Target: expr, Index: idx, Sp: expr.Span().Join(idxTok.Span)}
				continue
			}
			field, err := p.consume(token.IDENTIFIER, "expected field name after '.'")
			if err != nil {
				return nil, err
			}
			expr = ast.FieldGet{Target: expr, Field: field}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) callArgs() ([]ast.Expression, span.Span, error) {
	var args []ast.Expression
	if !p.checkType(token.RPA) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, span.Span{}, err
			}
			args = append(args, arg)
			if !p.isMatch(token.COMMA) {
				break
			}
		}
	}
	closing, err := p.consume(token.RPA, "expected ')' after call arguments")
	if err != nil {
		return nil, span.Span{}, err
	}
	return args, closing.Span, nil
}

func (p *Parser) buildCall(callee ast.Expression, args []ast.Expression, closeSp span.Span) ast.Expression {
	switch c := callee.(type) {
	case ast.Variable:
		return ast.Call{Callee: ast.Path{First: c.Name}, Args: args, Sp: c.Span().Join(closeSp)}
	case ast.Path:
		return ast.Call{Callee: c, Args: args, Sp: c.Span().Join(closeSp)}
	default:
		return ast.CallFn{Callee: callee, Args: args, Sp: callee.Span().Join(closeSp)}
	}
}

func (p *Parser) primary() (ast.Expression, error) {
	switch {
	case p.isMatch(token.FALSE):
		tok := p.previous()
		return ast.Literal{Value: false, Sp: tok.Span}, nil
	case p.isMatch(token.TRUE):
		tok := p.previous()
		return ast.Literal{Value: true, Sp: tok.Span}, nil
	case p.isMatch(token.NULL):
		tok := p.previous()
		return ast.Literal{Value: nil, Sp: tok.Span}, nil
	case p.isMatch(token.FLOAT, token.INT, token.STRING, token.BYTESTRING):
		tok := p.previous()
		return ast.Literal{Value: tok.Literal, Sp: tok.Span}, nil
	case p.isMatch(token.IDENTIFIER):
		return p.pathOrVariable(), nil
	case p.isMatch(token.LPA):
		return p.groupingOrTuple()
	case p.isMatch(token.LBRACKET):
		return p.vecLiteral()
	case p.isMatch(token.HASH):
		return p.objectLiteral()
	case p.isMatch(token.SELECT):
		return p.selectExpr()
	}
	cur := p.peek()
	if cur.Kind == token.EOF {
		return nil, newParseError(UnexpectedEof, cur.Span, "unexpected end of input")
	}
	return nil, newParseError(ExpectedToken, cur.Span, "expected an expression")
}

func (p *Parser) pathOrVariable() ast.Expression {
	first := p.previous()
	var rest []token.Token
	for p.checkType(token.DOT) {
		save := p.position
		p.advance() // consume '.'
		if !p.checkType(token.IDENTIFIER) {
			p.position = save
			break
		}
		rest = append(rest, p.advance())
	}
	if len(rest) == 0 {
		return ast.Variable{Name: first}
	}
	return ast.Path{First: first, Rest: rest}
}

func (p *Parser) groupingOrTuple() (ast.Expression, error) {
	start := p.previous().Span
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.isMatch(token.COMMA) {
		closing, err := p.consume(token.RPA, "expected ')' to close grouping")
		if err != nil {
			return nil, err
		}
		return ast.Grouping{Expression: first, Sp: start.Join(closing.Span)}, nil
	}
	elements := []ast.Expression{first}
	for !p.checkType(token.RPA) {
		el, err := p.expression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	closing, err := p.consume(token.RPA, "expected ')' to close tuple literal")
	if err != nil {
		return nil, err
	}
	return ast.TupleLiteral{Elements: elements, Sp: start.Join(closing.Span)}, nil
}

func (p *Parser) vecLiteral() (ast.Expression, error) {
	start := p.previous().Span
	var elements []ast.Expression
	for !p.checkType(token.RBRACKET) {
		el, err := p.expression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	closing, err := p.consume(token.RBRACKET, "expected ']' to close vector literal")
	if err != nil {
		return nil, err
	}
	return ast.VecLiteral{Elements: elements, Sp: start.Join(closing.Span)}, nil
}

func (p *Parser) objectLiteral() (ast.Expression, error) {
	start := p.previous().Span
	if _, err := p.consume(token.LCUR, "expected '{' after '#'"); err != nil {
		return nil, err
	}
	var fields []ast.ObjectField
	for !p.checkType(token.RCUR) {
		key, err := p.consume(token.IDENTIFIER, "expected object field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' after object field name"); err != nil {
			return nil, err
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.ObjectField{Key: key, Value: value})
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	closing, err := p.consume(token.RCUR, "expected '}' to close object literal")
	if err != nil {
		return nil, err
	}
	return ast.ObjectLiteral{Fields: fields, Sp: start.Join(closing.Span)}, nil
}

func (p *Parser) selectExpr() (ast.Expression, error) {
	start := p.previous().Span
	if _, err := p.consume(token.LCUR, "expected '{' after select"); err != nil {
		return nil, err
	}
	var branches []ast.SelectBranch
	for !p.checkType(token.RCUR) {
		name, err := p.consume(token.IDENTIFIER, "expected branch name in select")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.ASSIGN, "expected '=' after select branch name"); err != nil {
			return nil, err
		}
		future, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.FATARROW, "expected '=>' after select branch future"); err != nil {
			return nil, err
		}
		body, err := p.expression()
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.SelectBranch{Name: name, Future: future, Body: body})
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	closing, err := p.consume(token.RCUR, "expected '}' to close select")
	if err != nil {
		return nil, err
	}
	return ast.Select{Branches: branches, Sp: start.Join(closing.Span)}, nil
}
