package expr

// node is an evaluable expression tree node.
type node interface {
	pos() int
}

type numberNode struct {
	value float64
	at    int
}

type unaryNode struct {
	op      tokenKind
	operand node
	at      int
}

type binaryNode struct {
	op          tokenKind
	left, right node
	at          int
}

type callNode struct {
	fn  string
	arg node
	at  int
}

func (n *numberNode) pos() int { return n.at }
func (n *unaryNode) pos() int  { return n.at }
func (n *binaryNode) pos() int { return n.at }
func (n *callNode) pos() int   { return n.at }

// functions lists the only callable names.
var functions = map[string]bool{
	"sqrt":      true,
	"cbrt":      true,
	"factorial": true,
}

// parser is a recursive-descent parser over the token stream.
//
// Precedence, lowest first:
//
//	additive        + -
//	multiplicative  * /
//	unary           + - (prefix)
//	power           ^ (right associative, exponent may carry a sign)
//	postfix         primary followed by any number of !
//	primary         number | call | ( expr )
//
// An operand directly followed by "(" or a function name multiplies:
// 2(3+4) and 2sqrt(9) parse as 2*(3+4) and 2*sqrt(9).
type parser struct {
	toks     []token
	i        int
	depth    int
	maxDepth int
	nodes    int
	maxNodes int
}

func parse(src string, maxDepth, maxNodes int) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks)-1 > maxNodes {
		return nil, timeoutError("expression has %d tokens, budget is %d", len(toks)-1, maxNodes)
	}
	p := &parser{toks: toks, maxDepth: maxDepth, maxNodes: maxNodes}
	n, err := p.additive()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, parseError(tok.pos, "unexpected %s", tok.kind)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) count() error {
	p.nodes++
	if p.nodes > p.maxNodes {
		return timeoutError("expression exceeds node budget of %d", p.maxNodes)
	}
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return timeoutError("expression nesting exceeds %d levels", p.maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) additive() (node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		if err := p.count(); err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.kind, left: left, right: right, at: tok.pos}
	}
}

func (p *parser) multiplicative() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		op := tok.kind
		switch op {
		case tokStar, tokSlash:
			p.next()
		case tokLParen, tokIdent:
			op = tokStar
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if err := p.count(); err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right, at: tok.pos}
	}
}

func (p *parser) unary() (node, error) {
	tok := p.peek()
	if tok.kind != tokPlus && tok.kind != tokMinus {
		return p.power()
	}
	p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	if err := p.count(); err != nil {
		return nil, err
	}
	return &unaryNode{op: tok.kind, operand: operand, at: tok.pos}, nil
}

func (p *parser) power() (node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind != tokCaret {
		return base, nil
	}
	p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	if err := p.count(); err != nil {
		return nil, err
	}
	return &binaryNode{op: tokCaret, left: base, right: exp, at: tok.pos}, nil
}

func (p *parser) postfix() (node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokBang {
		tok := p.next()
		if err := p.count(); err != nil {
			return nil, err
		}
		n = &callNode{fn: "factorial", arg: n, at: tok.pos}
	}
	return n, nil
}

func (p *parser) primary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		if err := p.count(); err != nil {
			return nil, err
		}
		return &numberNode{value: tok.num, at: tok.pos}, nil

	case tokLParen:
		inner, err := p.group(tok)
		if err != nil {
			return nil, err
		}
		return inner, nil

	case tokIdent:
		if !functions[tok.text] {
			return nil, parseError(tok.pos, "unknown function %q", tok.text)
		}
		open := p.next()
		if open.kind != tokLParen {
			return nil, parseError(open.pos, "expected '(' after %s", tok.text)
		}
		arg, err := p.group(open)
		if err != nil {
			return nil, err
		}
		if err := p.count(); err != nil {
			return nil, err
		}
		return &callNode{fn: tok.text, arg: arg, at: tok.pos}, nil

	case tokEOF:
		return nil, parseError(tok.pos, "unexpected end of expression")

	default:
		return nil, parseError(tok.pos, "unexpected %s", tok.kind)
	}
}

// group parses the body of a parenthesized expression; the opening
// parenthesis has already been consumed.
func (p *parser) group(open token) (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	inner, err := p.additive()
	if err != nil {
		return nil, err
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, parseError(open.pos, "unclosed '('")
	}
	return inner, nil
}
