package frontend

import (
	"strings"

	"go.uber.org/multierr"
)

// ============================================================================
// 词法单元
// ============================================================================

type tokenKind int

const (
	tokEOF     tokenKind = iota
	tokNewline           // 行结束
	tokIdent             // 助记符或 true/false/null
	tokInt               // 整数字面量
	tokFloat             // 浮点数字面量
	tokString            // 字符串字面量，Text 为解码后的内容
)

var tokenKindNames = [...]string{
	tokEOF:     "end of file",
	tokNewline: "end of line",
	tokIdent:   "identifier",
	tokInt:     "integer",
	tokFloat:   "float",
	tokString:  "string",
}

func (k tokenKind) String() string {
	return tokenKindNames[k]
}

type token struct {
	Kind tokenKind
	Text string
	Pos  Position
}

// ============================================================================
// 词法分析器
// ============================================================================
//
// 逐字节扫描，';' 到行尾为注释。
// 出错时记录错误并继续扫描，最后一次性返回全部错误。

type lexer struct {
	source string
	tokens []token

	start     int
	current   int
	line      int
	lineStart int

	errs error
}

func newLexer(source string) *lexer {
	estimated := len(source) / 4
	if estimated < 16 {
		estimated = 16
	}
	return &lexer{
		source: source,
		tokens: make([]token, 0, estimated),
		line:   1,
	}
}

// scan 扫描全部 token，最后一个总是 EOF
func (l *lexer) scan() ([]token, error) {
	for !l.isAtEnd() {
		l.start = l.current
		l.scanToken()
	}
	l.start = l.current
	if n := len(l.tokens); n > 0 && l.tokens[n-1].Kind != tokNewline {
		l.add(tokNewline, "")
	}
	l.add(tokEOF, "")
	return l.tokens, l.errs
}

func (l *lexer) scanToken() {
	ch := l.advance()
	switch {
	case ch == ' ' || ch == '\t' || ch == '\r':
	case ch == '\n':
		l.add(tokNewline, "")
		l.line++
		l.lineStart = l.current
	case ch == ';':
		for !l.isAtEnd() && l.peek() != '\n' {
			l.current++
		}
	case ch == '"':
		l.string()
	case isDigit(ch), (ch == '-' || ch == '+') && isDigit(l.peek()):
		l.number()
	case isIdentStart(ch):
		for isIdentPart(l.peek()) {
			l.current++
		}
		l.add(tokIdent, l.source[l.start:l.current])
	default:
		l.errorf("unexpected character %q", ch)
	}
}

func (l *lexer) number() {
	for {
		ch := l.peek()
		hex := isHexLiteral(l.source[l.start:l.current])
		switch {
		case isIdentPart(ch):
		case !hex && ch == '.':
		case !hex && (ch == '-' || ch == '+') && isExponent(l.previous()):
		default:
			text := l.source[l.start:l.current]
			kind := tokInt
			if !isHexLiteral(text) && strings.ContainsAny(text, ".eE") {
				kind = tokFloat
			}
			l.add(kind, text)
			return
		}
		l.current++
	}
}

func (l *lexer) string() {
	var sb strings.Builder
	for {
		if l.isAtEnd() || l.peek() == '\n' {
			l.errorf("unterminated string")
			return
		}
		ch := l.advance()
		if ch == '"' {
			break
		}
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		if l.isAtEnd() {
			l.errorf("unterminated string")
			return
		}
		switch esc := l.advance(); esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\', '"':
			sb.WriteByte(esc)
		default:
			l.errorf("invalid escape sequence \\%c", esc)
		}
	}
	l.add(tokString, sb.String())
}

// ============================================================================
// 辅助方法
// ============================================================================

func (l *lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *lexer) advance() byte {
	ch := l.source[l.current]
	l.current++
	return ch
}

func (l *lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *lexer) previous() byte {
	return l.source[l.current-1]
}

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.start - l.lineStart + 1}
}

func (l *lexer) add(kind tokenKind, text string) {
	l.tokens = append(l.tokens, token{Kind: kind, Text: text, Pos: l.pos()})
}

func (l *lexer) errorf(format string, args ...interface{}) {
	l.errs = multierr.Append(l.errs, newPosError(l.pos(), format, args...))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isExponent(ch byte) bool {
	return ch == 'e' || ch == 'E'
}

func isHexLiteral(text string) bool {
	digits := strings.TrimLeft(text, "+-")
	return strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X")
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
