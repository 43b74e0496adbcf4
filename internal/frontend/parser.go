package frontend

import (
	"strconv"

	"go.uber.org/multierr"

	"github.com/tangzhangming/solac/internal/bytecode"
)

// statement 一行汇编指令
type statement struct {
	Op      bytecode.OpCode
	Operand *operand // 无操作数时为 nil
	Pos     Position
}

// operand 指令操作数
type operand struct {
	Value   bytecode.Value // CONST / CONST_LONG 的字面量
	Integer int64          // 其余指令的整数操作数
	Pos     Position
}

// parser 语法分析器：token 序列 -> 指令序列
//
// 出错时跳到下一行继续分析。
type parser struct {
	tokens  []token
	current int
	errs    error
}

func newParser(tokens []token) *parser {
	return &parser{tokens: tokens}
}

func (p *parser) parse() ([]statement, error) {
	var stmts []statement
	for !p.check(tokEOF) {
		if p.match(tokNewline) {
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			p.errs = multierr.Append(p.errs, err)
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, p.errs
}

func (p *parser) statement() (statement, error) {
	tok := p.advance()
	if tok.Kind != tokIdent {
		return statement{}, newPosError(tok.Pos, "expected mnemonic, got %s", tok.Kind)
	}
	op, ok := bytecode.LookupOp(tok.Text)
	if !ok {
		return statement{}, newPosError(tok.Pos, "unknown mnemonic %q", tok.Text)
	}
	stmt := statement{Op: op, Pos: tok.Pos}

	switch {
	case op == bytecode.OpConst || op == bytecode.OpConstLong:
		arg, err := p.literal(op)
		if err != nil {
			return statement{}, err
		}
		stmt.Operand = arg
	case op.OperandWidth() > 0:
		arg, err := p.integer(op)
		if err != nil {
			return statement{}, err
		}
		stmt.Operand = arg
	}

	if next := p.peek(); next.Kind != tokNewline {
		return statement{}, newPosError(next.Pos, "unexpected %s after %s", next.Kind, op)
	}
	return stmt, nil
}

// literal 解析常量字面量
func (p *parser) literal(op bytecode.OpCode) (*operand, error) {
	tok := p.peek()
	arg := &operand{Pos: tok.Pos}
	switch tok.Kind {
	case tokInt:
		n, err := strconv.ParseInt(tok.Text, 0, 64)
		if err != nil {
			return nil, newPosError(tok.Pos, "invalid integer %q", tok.Text)
		}
		arg.Value = bytecode.NewInt(n)
	case tokFloat:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, newPosError(tok.Pos, "invalid float %q", tok.Text)
		}
		arg.Value = bytecode.NewFloat(f)
	case tokString:
		arg.Value = bytecode.NewString(tok.Text)
	case tokIdent:
		switch tok.Text {
		case "true":
			arg.Value = bytecode.NewBool(true)
		case "false":
			arg.Value = bytecode.NewBool(false)
		case "null":
			arg.Value = bytecode.NewNull()
		default:
			return nil, newPosError(tok.Pos, "%s expects a literal, got %q", op, tok.Text)
		}
	default:
		return nil, newPosError(tok.Pos, "%s expects a literal, got %s", op, tok.Kind)
	}
	p.advance()
	return arg, nil
}

// integer 解析整数操作数
func (p *parser) integer(op bytecode.OpCode) (*operand, error) {
	tok := p.peek()
	if tok.Kind != tokInt {
		return nil, newPosError(tok.Pos, "%s expects an integer operand, got %s", op, tok.Kind)
	}
	n, err := strconv.ParseInt(tok.Text, 0, 64)
	if err != nil {
		return nil, newPosError(tok.Pos, "invalid integer %q", tok.Text)
	}
	p.advance()
	return &operand{Integer: n, Pos: tok.Pos}, nil
}

// synchronize 丢弃到行尾
func (p *parser) synchronize() {
	for !p.check(tokEOF) && !p.check(tokNewline) {
		p.advance()
	}
}

func (p *parser) peek() token {
	return p.tokens[p.current]
}

func (p *parser) check(kind tokenKind) bool {
	return p.peek().Kind == kind
}

func (p *parser) advance() token {
	tok := p.tokens[p.current]
	if tok.Kind != tokEOF {
		p.current++
	}
	return tok
}

func (p *parser) match(kind tokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}
