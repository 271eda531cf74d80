package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"nilan/ast"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// astPrinter implements ast.ExpressionVisitor and ast.StmtVisitor, building
// a JSON-friendly representation of the tree using maps and slices.
type astPrinter struct{}

func (p astPrinter) VisitExpressionStmt(n ast.ExpressionStmt) any {
	return map[string]any{"type": "ExpressionStmt", "expression": n.Expression.Accept(p)}
}

func (p astPrinter) VisitPrintStmt(n ast.PrintStmt) any {
	return map[string]any{"type": "PrintStmt", "expression": n.Expression.Accept(p)}
}

func (p astPrinter) VisitVarStmt(n ast.VarStmt) any {
	return map[string]any{"type": "VarStmt", "name": n.Name.Lexeme(), "initializer": nilOrAccept(n.Initializer, p)}
}

func (p astPrinter) VisitBlockStmt(n ast.BlockStmt) any {
	stmts := make([]any, 0, len(n.Statements))
	for _, s := range n.Statements {
		stmts = append(stmts, s.Accept(p))
	}
	return map[string]any{"type": "BlockStmt", "statements": stmts}
}

func (p astPrinter) VisitWhileStmt(n ast.WhileStmt) any {
	return map[string]any{"type": "WhileStmt", "condition": n.Condition.Accept(p), "body": n.Body.Accept(p)}
}

func (p astPrinter) VisitIfStmt(n ast.IfStmt) any {
	elifs := make([]any, 0, len(n.ElseIfs))
	for _, b := range n.ElseIfs {
		elifs = append(elifs, map[string]any{"condition": b.Condition.Accept(p), "body": b.Body.Accept(p)})
	}
	var elseVal any
	if n.Else != nil {
		elseVal = n.Else.Accept(p)
	}
	return map[string]any{
		"type": "IfStmt", "condition": n.Condition.Accept(p), "then": n.Then.Accept(p),
		"elseIfs": elifs, "else": elseVal,
	}
}

func (p astPrinter) VisitReturnStmt(n ast.ReturnStmt) any {
	return map[string]any{"type": "ReturnStmt", "value": nilOrAccept(n.Value, p)}
}

func (p astPrinter) VisitBreakStmt(n ast.BreakStmt) any { return map[string]any{"type": "BreakStmt"} }

func (p astPrinter) VisitContinueStmt(n ast.ContinueStmt) any {
	return map[string]any{"type": "ContinueStmt"}
}

func (p astPrinter) VisitFnDecl(n ast.FnDecl) any {
	params := make([]string, 0, len(n.Params))
	for _, tok := range n.Params {
		params = append(params, tok.Lexeme())
	}
	return map[string]any{
		"type": "FnDecl", "name": n.Name.Lexeme(), "async": n.IsAsync,
		"params": params, "body": n.Body.Accept(p),
	}
}

func (p astPrinter) VisitLogicalExpression(n ast.Logical) any {
	return map[string]any{"type": "Logical", "operator": string(n.Operator.Kind), "left": n.Left.Accept(p), "right": n.Right.Accept(p)}
}

func (p astPrinter) VisitAssignExpression(n ast.Assign) any {
	return map[string]any{"type": "Assign", "name": n.Name.Lexeme(), "value": n.Value.Accept(p)}
}

func (p astPrinter) VisitCompoundAssignExpression(n ast.CompoundAssign) any {
	return map[string]any{"type": "CompoundAssign", "operator": string(n.Operator.Kind), "name": n.Name.Lexeme(), "value": n.Value.Accept(p)}
}

func (p astPrinter) VisitVariableExpression(n ast.Variable) any {
	return map[string]any{"type": "Variable", "name": n.Name.Lexeme()}
}

func (p astPrinter) VisitPathExpression(n ast.Path) any {
	return map[string]any{"type": "Path", "path": n.String()}
}

func (p astPrinter) VisitBinary(n ast.Binary) any {
	return map[string]any{"type": "Binary", "operator": string(n.Operator.Kind), "left": n.Left.Accept(p), "right": n.Right.Accept(p)}
}

func (p astPrinter) VisitUnary(n ast.Unary) any {
	return map[string]any{"type": "Unary", "operator": string(n.Operator.Kind), "right": n.Right.Accept(p)}
}

func (p astPrinter) VisitLiteral(n ast.Literal) any { return n.Value }

func (p astPrinter) VisitGrouping(n ast.Grouping) any {
	return map[string]any{"type": "Grouping", "expression": n.Expression.Accept(p)}
}

func (p astPrinter) VisitIndexGet(n ast.IndexGet) any {
	return map[string]any{"type": "IndexGet", "target": n.Target.Accept(p), "index": n.Index.Accept(p)}
}

func (p astPrinter) VisitIndexSet(n ast.IndexSet) any {
	return map[string]any{"type": "IndexSet", "target": n.Target.Accept(p), "index": n.Index.Accept(p), "value": n.Value.Accept(p)}
}

func (p astPrinter) VisitFieldGet(n ast.FieldGet) any {
	return map[string]any{"type": "FieldGet", "target": n.Target.Accept(p), "field": n.Field.Lexeme()}
}

func (p astPrinter) VisitFieldSet(n ast.FieldSet) any {
	return map[string]any{"type": "FieldSet", "target": n.Target.Accept(p), "field": n.Field.Lexeme(), "value": n.Value.Accept(p)}
}

func (p astPrinter) VisitTupleIndexGet(n ast.TupleIndexGet) any {
	return map[string]any{"type": "TupleIndexGet", "target": n.Target.Accept(p), "index": n.Index}
}

func (p astPrinter) VisitTupleIndexSet(n ast.TupleIndexSet) any {
	return map[string]any{"type": "TupleIndexSet", "target": n.Target.Accept(p), "index": n.Index, "value": n.Value.Accept(p)}
}

func (p astPrinter) VisitCall(n ast.Call) any {
	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		args = append(args, a.Accept(p))
	}
	return map[string]any{"type": "Call", "callee": n.Callee.String(), "args": args}
}

func (p astPrinter) VisitCallFn(n ast.CallFn) any {
	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		args = append(args, a.Accept(p))
	}
	return map[string]any{"type": "CallFn", "callee": n.Callee.Accept(p), "args": args}
}

func (p astPrinter) VisitVecLiteral(n ast.VecLiteral) any {
	elems := make([]any, 0, len(n.Elements))
	for _, e := range n.Elements {
		elems = append(elems, e.Accept(p))
	}
	return map[string]any{"type": "VecLiteral", "elements": elems}
}

func (p astPrinter) VisitTupleLiteral(n ast.TupleLiteral) any {
	elems := make([]any, 0, len(n.Elements))
	for _, e := range n.Elements {
		elems = append(elems, e.Accept(p))
	}
	return map[string]any{"type": "TupleLiteral", "elements": elems}
}

func (p astPrinter) VisitObjectLiteral(n ast.ObjectLiteral) any {
	fields := make(map[string]any, len(n.Fields))
	for _, f := range n.Fields {
		fields[f.Key.Lexeme()] = f.Value.Accept(p)
	}
	return map[string]any{"type": "ObjectLiteral", "fields": fields}
}

func (p astPrinter) VisitAwait(n ast.Await) any {
	return map[string]any{"type": "Await", "target": n.Target.Accept(p)}
}

func (p astPrinter) VisitSelect(n ast.Select) any {
	branches := make([]any, 0, len(n.Branches))
	for _, b := range n.Branches {
		branches = append(branches, map[string]any{
			"name": b.Name.Lexeme(), "future": b.Future.Accept(p), "body": b.Body.Accept(p),
		})
	}
	return map[string]any{"type": "Select", "branches": branches}
}

func nilOrAccept(expr ast.Expression, p ast.ExpressionVisitor) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(p)
}

// PrintASTJSON converts a slice of statements into a prettified JSON string
// and also writes it, color-highlighted, to standard output.
func PrintASTJSON(statements []ast.Stmt) (string, error) {
	printer := astPrinter{}
	out := make([]any, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.Accept(printer))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + jsonStr)
	fmt.Println(colorYellow + "-----" + colorReset)
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON for statements to path.
func WriteASTJSONToFile(statements []ast.Stmt, path string) error {
	s, err := PrintASTJSON(statements)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write([]byte(s)); err != nil {
		return fmt.Errorf("error writing AST to file: %w", err)
	}
	return nil
}

// Print prints the AST as prettified JSON to standard output.
func (p *Parser) Print(statements []ast.Stmt) {
	if _, err := PrintASTJSON(statements); err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for statements to a .json file at path.
func (p *Parser) PrintToFile(statements []ast.Stmt, path string) error {
	return WriteASTJSONToFile(statements, path)
}
