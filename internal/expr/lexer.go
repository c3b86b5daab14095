package expr

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
	tokBang
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokCaret:
		return "'^'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokBang:
		return "'!'"
	default:
		return "unknown token"
	}
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits a normalized expression into tokens.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isDigit(r) || r == '.':
			start := i
			seenDot := false
			for i < len(src) && (isDigit(rune(src[i])) || (src[i] == '.' && !seenDot)) {
				if src[i] == '.' {
					seenDot = true
				}
				i++
			}
			text := src[start:i]
			if text == "." {
				return nil, parseError(start, "unexpected '.'")
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, parseError(start, "invalid number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})
		case isLetter(r):
			start := i
			for i < len(src) && isLetter(rune(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			kind, ok := punctuation[r]
			if !ok {
				return nil, parseError(i, "unexpected character %q", r)
			}
			toks = append(toks, token{kind: kind, text: string(r), pos: i})
			i += size
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

var punctuation = map[rune]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'^': tokCaret,
	'(': tokLParen,
	')': tokRParen,
	'!': tokBang,
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
