package compiler

import (
	"fmt"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds a
// Module, lowering surface sugar into the core node set as it goes.
//
// Grammar (items and statements; expressions live in parser_expr.go):
//
//	module     = (item | NEWLINE)* EOF
//	item       = decorator* (funcDef | classDef | typeDef) | import | const | statement
//	decorator  = "@" IDENTIFIER ("(" args ")")? NEWLINE
//	funcDef    = "def" IDENTIFIER typeParams? "(" params ")" ("->" type)? ":" block
//	typeDef    = "type" IDENTIFIER typeParams? (":" suite | "=" alternatives)
//	classDef   = "class" IDENTIFIER typeParams? ("(" bases ")")? ":" suite
//	block      = simpleStmt | NEWLINE INDENT statement+ DEDENT
//	statement  = return | if | while | for | match | assert | pass | break
//	           | continue | assignment | exprStmt
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
	syms        *SymbolTable
	trace       TraceSink
	diags       []Diagnostic

	nextAcc int // comprehension accumulator counter
	nextTmp int // comparison-chain temporary counter
}

func NewParser(tokens []Token, rawSource string, syms *SymbolTable, opts ...Option) *Parser {
	cfg := buildOptions(opts)
	if syms == nil {
		syms = NewSymbolTable()
	}
	return &Parser{
		tokens:      tokens,
		sourceLines: strings.Split(rawSource, "\n"),
		syms:        syms,
		trace:       cfg.trace,
	}
}

// fmtError builds a ParseError at tok carrying the source line it sits on.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	lineIdx := tok.Pos.Line - 1 // Lines are 1-based

	snippet := ""
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}
	length := tok.End - tok.Pos.Offset
	if tok.Type == STRING || length < 1 {
		length = 1
	}
	return &ParseError{
		Message:    fmt.Sprintf(format, args...),
		Pos:        tok.Pos,
		Length:     length,
		Snippet:    snippet,
		incomplete: tok.Type == EOF,
	}
}

// warn records a non-fatal diagnostic at tok.
func (p *Parser) warn(tok Token, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		Level:    LevelWarning,
		Category: CategoryScope,
		Message:  fmt.Sprintf(format, args...),
		Pos:      tok.Pos,
		Length:   tok.End - tok.Pos.Offset,
	})
}

func (p *Parser) tracef(format string, args ...any) {
	p.trace.Trace("parse", format, args...)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			return Token{Type: EOF, Pos: last.Pos, End: last.End}
		}
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// accept consumes the current token when it has type tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s", tt, describe(tok))
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (Token, error) {
	return p.expect(IDENTIFIER)
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "end of line"
	case INDENT:
		return "indent"
	case DEDENT:
		return "dedent"
	case STRING:
		return fmt.Sprintf("string %q", tok.Lexeme)
	}
	return fmt.Sprintf("%s (%q)", tok.Type, tok.Lexeme)
}

func (p *Parser) skipNewlines() {
	for p.peek().Type == NEWLINE || p.peek().Type == SEMICOLON {
		p.advance()
	}
}

// atStatementEnd reports whether the current token terminates a simple statement.
func (p *Parser) atStatementEnd() bool {
	switch p.peek().Type {
	case NEWLINE, SEMICOLON, EOF, DEDENT:
		return true
	}
	return false
}

// endStatement consumes the terminator of a simple statement.
func (p *Parser) endStatement() error {
	switch p.peek().Type {
	case SEMICOLON:
		p.advance()
		p.accept(NEWLINE)
		return nil
	case NEWLINE:
		p.advance()
		return nil
	case EOF, DEDENT:
		return nil
	}
	return p.fmtError(p.peek(), "expected end of statement, got %s", describe(p.peek()))
}

// Parse runs the classification pre-pass and then parses tokens into a
// Module. Warnings about ambiguous names are returned alongside it.
func Parse(tokens []Token, rawSource string, syms *SymbolTable, opts ...Option) (*Module, []Diagnostic, error) {
	p := NewParser(tokens, rawSource, syms, opts...)
	if err := p.classify(); err != nil {
		return nil, p.diags, err
	}
	mod, err := p.parseModule()
	if err != nil {
		return nil, p.diags, err
	}
	return mod, p.diags, nil
}

// parseModule parses every top-level item. Loose statements run in a
// module scope of their own.
func (p *Parser) parseModule() (*Module, error) {
	p.syms.EnterScope()
	defer p.syms.ExitScope()

	mod := &Module{}
	for {
		p.skipNewlines()
		if p.peek().Type == EOF {
			return mod, nil
		}
		if p.peek().Type == INDENT || p.peek().Type == DEDENT {
			return nil, p.fmtError(p.peek(), "unexpected %s at top level", describe(p.peek()))
		}
		items, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		mod.Items = append(mod.Items, items...)
	}
}

// decorator is a parsed @name or @name(args) line.
type decorator struct {
	tok  Token
	name string
	path string   // string literal argument, marks a foreign binding
	args []string // bare identifier arguments
}

func (p *Parser) parseDecorators() ([]decorator, error) {
	var decos []decorator
	for p.peek().Type == AT {
		tok := p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		d := decorator{tok: tok, name: name.Lexeme}
		for p.accept(DOT) {
			next, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			d.name += "." + next.Lexeme
		}
		if p.accept(LPAREN) {
			for p.peek().Type != RPAREN {
				switch arg := p.advance(); arg.Type {
				case STRING:
					d.path = arg.Lexeme
				case IDENTIFIER:
					d.args = append(d.args, arg.Lexeme)
				case EOF:
					return nil, p.fmtError(arg, "unexpected end of input in decorator")
				default:
					return nil, p.fmtError(arg, "unsupported decorator argument %s", describe(arg))
				}
				if !p.accept(COMMA) {
					break
				}
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(NEWLINE); err != nil {
			return nil, err
		}
		p.skipNewlines()
		decos = append(decos, d)
	}
	return decos, nil
}

func findDecorator(decos []decorator, name string) (decorator, bool) {
	for _, d := range decos {
		if d.name == name {
			return d, true
		}
	}
	return decorator{}, false
}

func foreignPath(decos []decorator) string {
	for _, d := range decos {
		if d.path != "" {
			return strings.ReplaceAll(d.path, ".", "::")
		}
	}
	return ""
}

// parseItem parses one top-level construct. A class can expand to a struct
// plus its impl block, hence the slice.
func (p *Parser) parseItem() ([]Item, error) {
	decos, err := p.parseDecorators()
	if err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case DEF:
		fn, err := p.parseFunction("")
		if err != nil {
			return nil, err
		}
		fn.Foreign = foreignPath(decos)
		return []Item{fn}, nil
	case CLASS:
		return p.parseClass(decos)
	case TYPE:
		return p.parseTypeDecl(decos)
	}
	if len(decos) > 0 {
		return nil, p.fmtError(decos[0].tok, "decorator must be followed by def or class")
	}

	switch p.peek().Type {
	case FROM:
		return p.parseFromImport()
	case IMPORT:
		return p.parseImport()
	case IDENTIFIER:
		if p.peekAt(1).Type == COLON {
			c, err := p.parseConst()
			if err != nil {
				return nil, err
			}
			return []Item{c}, nil
		}
		if code, ok := p.verbatimCall(); ok {
			if err := p.endStatement(); err != nil {
				return nil, err
			}
			return []Item{&VerbatimItem{Code: code}}, nil
		}
	}

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, nil
	}
	return []Item{&StmtItem{Stmt: stmt}}, nil
}

// verbatimCall consumes rust("...") when it forms a whole statement.
func (p *Parser) verbatimCall() (string, bool) {
	if p.peek().Lexeme != "rust" || p.peekAt(1).Type != LPAREN || p.peekAt(2).Type != STRING || p.peekAt(3).Type != RPAREN {
		return "", false
	}
	switch p.peekAt(4).Type {
	case NEWLINE, SEMICOLON, EOF, DEDENT:
	default:
		return "", false
	}
	if _, shadowed := p.syms.Lookup("rust"); shadowed {
		return "", false
	}
	p.advance()
	p.advance()
	code := p.advance().Lexeme
	p.advance()
	return code, true
}

// parseTypeParams parses an optional [T, U: Bound + Other] list.
func (p *Parser) parseTypeParams() ([]TypeParam, error) {
	if !p.accept(LBRACKET) {
		return nil, nil
	}
	var params []TypeParam
	for p.peek().Type != RBRACKET {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		tp := TypeParam{Name: name.Lexeme}
		if p.accept(COLON) {
			for {
				bound, err := p.parseType()
				if err != nil {
					return nil, err
				}
				tp.Bounds = append(tp.Bounds, bound)
				if !p.accept(PLUS) {
					break
				}
			}
		}
		params = append(params, tp)
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return params, nil
}

// parseParams parses a parameter list up to, not including, the closing paren.
func (p *Parser) parseParams() ([]Param, error) {
	var params []Param
	for p.peek().Type != RPAREN {
		if p.peek().Type == STAR || p.peek().Type == DOUBLESTAR {
			return nil, p.fmtError(p.peek(), "variadic parameters are not supported")
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		param := Param{Name: name.Lexeme}
		if p.accept(COLON) {
			if param.Type, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		if p.accept(ASSIGN) {
			if param.Default, err = p.parseTernary(); err != nil {
				return nil, err
			}
		}
		params = append(params, param)
		if !p.accept(COMMA) {
			break
		}
	}
	return params, nil
}

// parseFunction parses a def. selfType is the enclosing type for methods.
func (p *Parser) parseFunction(selfType string) (*FunctionDecl, error) {
	defTok, err := p.expect(DEF)
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	fn := &FunctionDecl{Name: name.Lexeme, Pos: defTok.Pos}
	if fn.TypeParams, err = p.parseTypeParams(); err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	if fn.Params, err = p.parseParams(); err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if p.accept(ARROW) {
		if fn.Return, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}

	p.syms.EnterFunction()
	defer p.syms.ExitFunction()
	for _, param := range fn.Params {
		if param.Name == "self" && selfType != "" {
			p.syms.Declare("self", Named(selfType))
			continue
		}
		p.syms.Declare(param.Name, descFromType(param.Type))
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	// pass and ... leave no statements; keep the body non-nil so only trait
	// signatures end up bodiless
	fn.Body = append([]Stmt{}, body...)
	return fn, nil
}

// parseBlock parses the body after a ':' in the current scope: either a
// simple statement on the same line or an indented suite.
func (p *Parser) parseBlock() ([]Stmt, error) {
	if p.peek().Type != NEWLINE {
		return p.parseSimpleLine()
	}
	p.advance()
	if _, err := p.expect(INDENT); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.peek().Type == DEDENT || p.peek().Type == EOF {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if _, err := p.expect(DEDENT); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseSimpleLine parses `stmt; stmt` following a ':' on the same line.
func (p *Parser) parseSimpleLine() ([]Stmt, error) {
	var stmts []Stmt
	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		// a semicolon keeps the line going; anything else ended it
		if p.tokens[p.pos-1].Type == NEWLINE || p.peek().Type == DEDENT || p.peek().Type == EOF {
			return stmts, nil
		}
	}
}

// parseScopedBlock parses a block inside a fresh lexical scope. declare
// runs after the scope opens, for loop and pattern bindings.
func (p *Parser) parseScopedBlock(declare func()) ([]Stmt, error) {
	p.syms.EnterScope()
	defer p.syms.ExitScope()
	if declare != nil {
		declare()
	}
	return p.parseBlock()
}

// parseTypeDecl parses `type Name[T]: suite` and `type Name[T] = alternatives`.
func (p *Parser) parseTypeDecl(decos []decorator) ([]Item, error) {
	p.advance() // type
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	typeParams, err := p.parseTypeParams()
	if err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case COLON:
		p.advance()
		fields, methods, err := p.parseStructSuite(name.Lexeme)
		if err != nil {
			return nil, err
		}
		return p.structItems(name.Lexeme, typeParams, fields, methods, "", foreignPath(decos)), nil
	case ASSIGN:
		p.advance()
		item, err := p.parseAlternatives(name, typeParams)
		if err != nil {
			return nil, err
		}
		return []Item{item}, nil
	}
	return nil, p.fmtError(p.peek(), "expected ':' or '=' after type %s, got %s", name.Lexeme, describe(p.peek()))
}

func (p *Parser) structItems(name string, tps []TypeParam, fields []FieldDecl, methods []*FunctionDecl, trait, foreign string) []Item {
	def := StructDef{Name: name}
	for _, f := range fields {
		def.Fields = append(def.Fields, f.Name)
		def.Types = append(def.Types, f.Type)
	}
	p.syms.DefineStruct(def)

	items := []Item{&StructDecl{Name: name, TypeParams: tps, Fields: fields, Foreign: foreign}}
	if foreign != "" {
		return items
	}
	if len(methods) > 0 || trait != "" {
		items = append(items, &ImplDecl{Target: name, TypeParams: tps, Trait: trait, Methods: methods})
	}
	return items
}

// parseSuiteHeader consumes NEWLINE INDENT opening a declaration body.
func (p *Parser) parseSuiteHeader() error {
	if _, err := p.expect(NEWLINE); err != nil {
		return err
	}
	_, err := p.expect(INDENT)
	return err
}

// skipDocstring drops a bare string statement used as documentation.
func (p *Parser) skipDocstring() bool {
	if p.peek().Type == STRING && (p.peekAt(1).Type == NEWLINE || p.peekAt(1).Type == DEDENT) {
		p.advance()
		p.accept(NEWLINE)
		return true
	}
	return false
}

// parseStructSuite reads `field: Type` lines and def methods.
func (p *Parser) parseStructSuite(typeName string) ([]FieldDecl, []*FunctionDecl, error) {
	if err := p.parseSuiteHeader(); err != nil {
		return nil, nil, err
	}
	var fields []FieldDecl
	var methods []*FunctionDecl
	for {
		p.skipNewlines()
		tok := p.peek()
		switch {
		case tok.Type == DEDENT:
			p.advance()
			return fields, methods, nil
		case tok.Type == EOF:
			return nil, nil, p.fmtError(tok, "unexpected end of input in body of %s", typeName)
		case tok.Type == PASS || tok.Type == ELLIPSIS:
			p.advance()
			if err := p.endStatement(); err != nil {
				return nil, nil, err
			}
		case p.skipDocstring():
		case tok.Type == DEF || tok.Type == AT:
			decos, err := p.parseDecorators()
			if err != nil {
				return nil, nil, err
			}
			fn, err := p.parseFunction(typeName)
			if err != nil {
				return nil, nil, err
			}
			fn.Foreign = foreignPath(decos)
			methods = append(methods, fn)
		case tok.Type == IDENTIFIER && p.peekAt(1).Type == COLON:
			p.advance()
			p.advance()
			ty, err := p.parseType()
			if err != nil {
				return nil, nil, err
			}
			if p.peek().Type == ASSIGN {
				return nil, nil, p.fmtError(p.peek(), "field defaults are not supported")
			}
			fields = append(fields, FieldDecl{Name: tok.Lexeme, Type: ty})
			if err := p.endStatement(); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, p.fmtError(tok, "expected field or method in %s, got %s", typeName, describe(tok))
		}
	}
}

// typeAlt is one alternative of a `type X = ...` declaration.
type typeAlt struct {
	tok    Token
	ty     *NamedType
	parens bool
	tuple  []TypeExpr
	named  []FieldDecl
}

// parseAlternatives parses the right-hand side of `type Name = ...` into an
// enum, a union of wrapped types, or an alias.
func (p *Parser) parseAlternatives(name Token, tps []TypeParam) (Item, error) {
	indented := false
	if p.peek().Type == NEWLINE && p.peekAt(1).Type == INDENT {
		p.advance()
		p.advance()
		indented = true
	}
	leadingPipe := p.accept(PIPE)

	var alts []typeAlt
	for {
		alt, err := p.parseAlternative()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
		if indented && p.peek().Type == NEWLINE && p.peekAt(1).Type == PIPE {
			p.advance()
		}
		if !p.accept(PIPE) {
			break
		}
	}
	if indented {
		p.skipNewlines()
		if _, err := p.expect(DEDENT); err != nil {
			return nil, err
		}
	} else if err := p.endStatement(); err != nil {
		return nil, err
	}

	hasPayload := false
	isUnion := false
	for _, a := range alts {
		if a.parens {
			hasPayload = true
		}
		if len(a.ty.Args) > 0 || len(a.ty.Path) > 1 || p.syms.IsTypeName(a.ty.Path[0]) {
			isUnion = true
		}
	}

	if !leadingPipe && !hasPayload && len(alts) == 1 && isUnion {
		return &AliasDecl{Name: name.Lexeme, TypeParams: tps, Type: alts[0].ty}, nil
	}

	enum := &EnumDecl{Name: name.Lexeme, TypeParams: tps}
	if !leadingPipe && !hasPayload && isUnion {
		seen := make(map[string]int)
		for _, a := range alts {
			seen[unionVariantName(a.ty)]++
		}
		for _, a := range alts {
			vname := unionVariantName(a.ty)
			if seen[vname] > 1 {
				vname = typeDerivedName(a.ty)
			}
			enum.Variants = append(enum.Variants, Variant{Name: vname, Tuple: []TypeExpr{a.ty}})
		}
		p.tracef("union %s -> %d wrapper variants", name.Lexeme, len(enum.Variants))
	} else {
		for _, a := range alts {
			if len(a.ty.Path) != 1 || len(a.ty.Args) > 0 {
				return nil, p.fmtError(a.tok, "variant name must be a plain identifier")
			}
			enum.Variants = append(enum.Variants, Variant{Name: a.ty.Path[0], Tuple: a.tuple, Named: a.named})
		}
	}
	if i := disambiguateArity(enum.Variants); i >= 0 {
		return nil, p.fmtError(alts[i].tok, "variant %s of %s is declared twice with the same fields", enum.Variants[i].Name, name.Lexeme)
	}
	p.registerEnum(enum)
	return enum, nil
}

func (p *Parser) registerEnum(enum *EnumDecl) {
	def := EnumDef{Name: enum.Name, Fields: make(map[string][]string)}
	for _, v := range enum.Variants {
		def.Variants = append(def.Variants, v.Name)
		for _, f := range v.Named {
			def.Fields[v.Name] = append(def.Fields[v.Name], f.Name)
		}
	}
	p.syms.DefineEnum(def)
}

// parseAlternative parses `Name`, `Name[T]`, `Name(T, U)` or `Name(x: T)`.
func (p *Parser) parseAlternative() (typeAlt, error) {
	tok := p.peek()
	ty, err := p.parseType()
	if err != nil {
		return typeAlt{}, err
	}
	named, ok := ty.(*NamedType)
	if !ok {
		return typeAlt{}, p.fmtError(tok, "expected a variant or type name")
	}
	alt := typeAlt{tok: tok, ty: named}
	if !p.accept(LPAREN) {
		return alt, nil
	}
	alt.parens = true
	for p.peek().Type != RPAREN {
		if p.peek().Type == IDENTIFIER && p.peekAt(1).Type == COLON {
			fname := p.advance().Lexeme
			p.advance()
			fty, err := p.parseType()
			if err != nil {
				return typeAlt{}, err
			}
			alt.named = append(alt.named, FieldDecl{Name: fname, Type: fty})
		} else {
			fty, err := p.parseType()
			if err != nil {
				return typeAlt{}, err
			}
			alt.tuple = append(alt.tuple, fty)
		}
		if !p.accept(COMMA) {
			break
		}
	}
	if len(alt.named) > 0 && len(alt.tuple) > 0 {
		return typeAlt{}, p.fmtError(tok, "variant %s mixes named and positional fields", named.Path[0])
	}
	_, err = p.expect(RPAREN)
	return alt, err
}

// unionVariantName derives a wrapper variant name from a type's tail
// segment: i64 -> I64, Vec[T] -> Vec.
func unionVariantName(t *NamedType) string {
	tail := t.Path[len(t.Path)-1]
	return strings.ToUpper(tail[:1]) + tail[1:]
}

// typeDerivedName spells a whole type as a variant name:
// Vec[i64] -> VecI64, (int, str) -> TupleIntStr.
func typeDerivedName(t TypeExpr) string {
	switch ty := t.(type) {
	case *NamedType:
		name := unionVariantName(ty)
		for _, arg := range ty.Args {
			name += typeDerivedName(arg)
		}
		return name
	case *TupleType:
		name := "Tuple"
		for _, e := range ty.Elems {
			name += typeDerivedName(e)
		}
		return name
	}
	return "Any"
}

// disambiguateArity renames variants that share a name but differ in payload
// count to Name__aN. Unique names are left alone. It returns the index of a
// variant still clashing after renaming, or -1.
func disambiguateArity(vs []Variant) int {
	count := make(map[string]int)
	for _, v := range vs {
		count[v.Name]++
	}
	for i, v := range vs {
		if count[v.Name] > 1 {
			vs[i].Name = fmt.Sprintf("%s__a%d", v.Name, len(v.Tuple)+len(v.Named))
		}
	}
	seen := make(map[string]bool)
	for i, v := range vs {
		if seen[v.Name] {
			return i
		}
		seen[v.Name] = true
	}
	return -1
}

// parseClass handles class declarations: traits, enums, impl blocks and
// plain record classes.
func (p *Parser) parseClass(decos []decorator) ([]Item, error) {
	p.advance() // class
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	tps, err := p.parseTypeParams()
	if err != nil {
		return nil, err
	}
	var bases []string
	if p.accept(LPAREN) {
		for p.peek().Type != RPAREN {
			base, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			bases = append(bases, base.Lexeme)
			if !p.accept(COMMA) {
				break
			}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}

	if d, ok := findDecorator(decos, "impl"); ok {
		_, methods, err := p.parseStructSuite(name.Lexeme)
		if err != nil {
			return nil, err
		}
		trait := ""
		if len(d.args) > 0 {
			trait = d.args[0]
		}
		return []Item{&ImplDecl{Target: name.Lexeme, TypeParams: tps, Trait: trait, Methods: methods}}, nil
	}

	base := ""
	if len(bases) > 0 {
		base = bases[0]
	}
	switch base {
	case "Trait":
		_, methods, err := p.parseStructSuite(name.Lexeme)
		if err != nil {
			return nil, err
		}
		for _, m := range methods {
			if len(m.Body) == 0 {
				m.Body = nil
			}
		}
		return []Item{&TraitDecl{Name: name.Lexeme, TypeParams: tps, Methods: methods}}, nil
	case "Enum":
		enum, err := p.parseEnumSuite(name.Lexeme, tps)
		if err != nil {
			return nil, err
		}
		return []Item{enum}, nil
	case "", "Struct":
		base = ""
	}
	if len(bases) > 1 {
		return nil, p.fmtError(name, "class %s: at most one trait base is supported", name.Lexeme)
	}
	fields, methods, err := p.parseStructSuite(name.Lexeme)
	if err != nil {
		return nil, err
	}
	return p.structItems(name.Lexeme, tps, fields, methods, base, foreignPath(decos)), nil
}

// parseEnumSuite reads `Variant`, `Variant = ()` and `Variant = (T, U)` lines.
func (p *Parser) parseEnumSuite(name string, tps []TypeParam) (*EnumDecl, error) {
	if err := p.parseSuiteHeader(); err != nil {
		return nil, err
	}
	enum := &EnumDecl{Name: name, TypeParams: tps}
	var vtoks []Token
	for {
		p.skipNewlines()
		tok := p.peek()
		if tok.Type == DEDENT {
			p.advance()
			break
		}
		if tok.Type == PASS || p.skipDocstring() {
			p.accept(PASS)
			p.accept(NEWLINE)
			continue
		}
		vname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		v := Variant{Name: vname.Lexeme}
		vtoks = append(vtoks, vname)
		if p.accept(ASSIGN) {
			if p.accept(LPAREN) {
				for p.peek().Type != RPAREN {
					ty, err := p.parseType()
					if err != nil {
						return nil, err
					}
					v.Tuple = append(v.Tuple, ty)
					if !p.accept(COMMA) {
						break
					}
				}
				if _, err := p.expect(RPAREN); err != nil {
					return nil, err
				}
			} else {
				ty, err := p.parseType()
				if err != nil {
					return nil, err
				}
				v.Tuple = []TypeExpr{ty}
			}
		}
		enum.Variants = append(enum.Variants, v)
		if err := p.endStatement(); err != nil {
			return nil, err
		}
	}
	if i := disambiguateArity(enum.Variants); i >= 0 {
		return nil, p.fmtError(vtoks[i], "variant %s of %s is declared twice with the same fields", enum.Variants[i].Name, name)
	}
	p.registerEnum(enum)
	return enum, nil
}

// parseConst parses `NAME: Type = value` at module level.
func (p *Parser) parseConst() (*ConstDecl, error) {
	name := p.advance()
	p.advance() // :
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ConstDecl{Name: name.Lexeme, Type: ty, Value: value, Pos: name.Pos}, nil
}

// parseDottedName parses IDENT (. IDENT)*.
func (p *Parser) parseDottedName() ([]string, error) {
	first, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	path := []string{first.Lexeme}
	for p.accept(DOT) {
		next, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		path = append(path, next.Lexeme)
	}
	return path, nil
}

// stripRustRoot drops the rust. prefix that marks a target-language path.
func stripRustRoot(path []string) []string {
	if len(path) > 1 && path[0] == "rust" {
		return path[1:]
	}
	return path
}

// parseFromImport lowers `from a.b import X, Y as Z` to one UseDecl per name.
func (p *Parser) parseFromImport() ([]Item, error) {
	p.advance() // from
	module, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	module = stripRustRoot(module)
	if _, err := p.expect(IMPORT); err != nil {
		return nil, err
	}
	paren := p.accept(LPAREN)
	var items []Item
	for {
		if paren {
			p.skipNewlines()
		}
		var name string
		if p.accept(STAR) {
			name = "*"
		} else {
			tok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			name = tok.Lexeme
		}
		use := &UseDecl{Path: append(append([]string{}, module...), name)}
		if p.accept(AS) {
			alias, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			use.Alias = alias.Lexeme
		}
		items = append(items, use)
		if !p.accept(COMMA) {
			break
		}
		if paren && p.peek().Type == RPAREN {
			break
		}
	}
	if paren {
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}
	return items, p.endStatement()
}

// parseImport lowers `import a.b [as c]` to a UseDecl for the module.
func (p *Parser) parseImport() ([]Item, error) {
	p.advance() // import
	var items []Item
	for {
		path, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		use := &UseDecl{Path: stripRustRoot(path)}
		if p.accept(AS) {
			alias, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			use.Alias = alias.Lexeme
		}
		items = append(items, use)
		if !p.accept(COMMA) {
			break
		}
	}
	return items, p.endStatement()
}
