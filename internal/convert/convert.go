// convert.go - 字节码到 IR 的转换
//
// 字节码虚拟机是基于栈的，而 IR 是基于寄存器的。
// 转换器模拟操作数栈：stackMap 记录每个栈位置当前对应的虚拟寄存器，
// stackDepth 是栈高度。每个压栈值都分配一个新的模块级寄存器。
//
// 当前只生成单个函数 "main" 和单个基本块，不处理跳转、调用和局部变量。
// 遇到不支持的操作码时整个转换失败，不保留部分 IR。

package convert

import (
	"errors"
	"fmt"

	"github.com/tangzhangming/solac/internal/bytecode"
	"github.com/tangzhangming/solac/internal/ir"
)

// EntryFunction 转换产生的唯一函数名
const EntryFunction = "main"

var (
	// ErrStackUnderflow 模拟栈为空时出栈
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrConsumed 转换器的模块已经移交或丢弃
	ErrConsumed = errors.New("converter module already consumed")
)

// UnsupportedOpcodeError 没有转换规则的操作码
type UnsupportedOpcodeError struct {
	Op     bytecode.OpCode
	Offset int
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("unsupported opcode %s at offset %d", e.Op, e.Offset)
}

// UnsupportedConstantError 无法表示为 IR 常量的常量池值
type UnsupportedConstantError struct {
	Index int
	Type  bytecode.ValueType
}

func (e *UnsupportedConstantError) Error() string {
	return fmt.Sprintf("unsupported constant kind %s at index %d", e.Type, e.Index)
}

// Converter 字节码到 IR 的转换器
type Converter struct {
	module *ir.Module

	// 当前状态
	fn    *ir.Function
	block *ir.Block
	line  int

	// 模拟栈
	stackMap   map[int]ir.RegisterID
	stackDepth int
}

// New 创建转换器，module 为待填充的空模块
func New(module *ir.Module) *Converter {
	return &Converter{
		module:   module,
		stackMap: make(map[int]ir.RegisterID),
	}
}

// Convert 便捷函数：用新模块转换一个字节码块
func Convert(name string, chunk *bytecode.Chunk) (*ir.Module, error) {
	return New(ir.NewModule(name)).Convert(chunk)
}

// Convert 转换字节码块，成功后模块的所有权移交给调用者
func (c *Converter) Convert(chunk *bytecode.Chunk) (*ir.Module, error) {
	if c.module == nil {
		return nil, ErrConsumed
	}

	if err := c.run(chunk); err != nil {
		// 失败时丢弃整个模块
		c.module, c.fn, c.block = nil, nil, nil
		return nil, err
	}

	m := c.module
	c.module, c.fn, c.block = nil, nil, nil
	return m, nil
}

func (c *Converter) run(chunk *bytecode.Chunk) error {
	c.fn = c.module.NewFunction(EntryFunction, ir.TypeI64)
	c.fn.Exported = true
	c.block = c.fn.EntryBlock()

	for offset := 0; offset < len(chunk.Code); {
		op := bytecode.OpCode(chunk.Code[offset])
		if !op.Valid() {
			return &UnsupportedOpcodeError{Op: op, Offset: offset}
		}
		in, err := chunk.Decode(offset)
		if err != nil {
			return err
		}
		c.line = in.Line
		if err := c.convertInstruction(chunk, in); err != nil {
			if errors.Is(err, ErrStackUnderflow) {
				return fmt.Errorf("%w at offset %d (%s)", err, in.Offset, in.Op)
			}
			return err
		}
		offset += in.Width()
	}

	// 合成的结尾：无条件 return 0，会覆盖之前设置的终结指令
	c.line = 0
	zero := c.module.NewRegister()
	c.emit(ir.LoadConst(zero, ir.IntConst(0)))
	c.terminate(ir.Return(zero))
	return nil
}

func (c *Converter) convertInstruction(chunk *bytecode.Chunk, in bytecode.Instruction) error {
	switch in.Op {
	case bytecode.OpConst, bytecode.OpConstLong:
		if in.Operand >= len(chunk.Constants) {
			return fmt.Errorf("constant index %d out of range at offset %d", in.Operand, in.Offset)
		}
		k, err := toConstant(in.Operand, chunk.Constants[in.Operand])
		if err != nil {
			return err
		}
		c.loadConst(k)
	case bytecode.OpNull:
		c.loadConst(ir.NullConst())
	case bytecode.OpTrue:
		c.loadConst(ir.BoolConst(true))
	case bytecode.OpFalse:
		c.loadConst(ir.BoolConst(false))
	case bytecode.OpZero:
		c.loadConst(ir.IntConst(0))
	case bytecode.OpOne:
		c.loadConst(ir.IntConst(1))

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe,
		bytecode.OpAnd, bytecode.OpOr,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpShl, bytecode.OpShr:
		return c.binary(binaryOps[in.Op])

	case bytecode.OpNeg:
		return c.unary(ir.OpNeg)
	case bytecode.OpNot:
		return c.unary(ir.OpNot)
	case bytecode.OpBitNot:
		return c.unary(ir.OpBitNot)

	case bytecode.OpPrint, bytecode.OpPrintLn:
		// TODO: 接入运行时打印函数后改为 Call
		_, err := c.popRegister()
		return err

	case bytecode.OpPop:
		_, err := c.popRegister()
		return err

	case bytecode.OpReturn:
		if c.stackDepth > 0 {
			r, err := c.popRegister()
			if err != nil {
				return err
			}
			c.terminate(ir.Return(r))
		} else {
			c.terminate(ir.ReturnVoid())
		}
	case bytecode.OpReturnNull:
		c.terminate(ir.ReturnVoid())

	default:
		return &UnsupportedOpcodeError{Op: in.Op, Offset: in.Offset}
	}
	return nil
}

var binaryOps = map[bytecode.OpCode]ir.Op{
	bytecode.OpAdd:    ir.OpAdd,
	bytecode.OpSub:    ir.OpSub,
	bytecode.OpMul:    ir.OpMul,
	bytecode.OpDiv:    ir.OpDiv,
	bytecode.OpMod:    ir.OpMod,
	bytecode.OpEq:     ir.OpEq,
	bytecode.OpNe:     ir.OpNe,
	bytecode.OpLt:     ir.OpLt,
	bytecode.OpLe:     ir.OpLe,
	bytecode.OpGt:     ir.OpGt,
	bytecode.OpGe:     ir.OpGe,
	bytecode.OpAnd:    ir.OpAnd,
	bytecode.OpOr:     ir.OpOr,
	bytecode.OpBitAnd: ir.OpBitAnd,
	bytecode.OpBitOr:  ir.OpBitOr,
	bytecode.OpBitXor: ir.OpBitXor,
	bytecode.OpShl:    ir.OpShl,
	bytecode.OpShr:    ir.OpShr,
}

// ============================================================================
// 指令生成
// ============================================================================

func (c *Converter) loadConst(k ir.Constant) {
	dest := c.pushRegister()
	c.emit(ir.LoadConst(dest, k))
}

// binary 先弹出的是右操作数，后弹出的是左操作数
func (c *Converter) binary(op ir.Op) error {
	right, err := c.popRegister()
	if err != nil {
		return err
	}
	left, err := c.popRegister()
	if err != nil {
		return err
	}
	dest := c.pushRegister()
	c.emit(ir.Binary(op, dest, left, right))
	return nil
}

func (c *Converter) unary(op ir.Op) error {
	operand, err := c.popRegister()
	if err != nil {
		return err
	}
	dest := c.pushRegister()
	c.emit(ir.Unary(op, dest, operand))
	return nil
}

// emit 追加到当前块，没有当前函数或块时丢弃
func (c *Converter) emit(in ir.Instruction) {
	if c.fn == nil || c.block == nil {
		return
	}
	c.block.Append(in.WithLine(c.line))
}

// terminate 设置当前块的终结指令，没有当前函数或块时丢弃
func (c *Converter) terminate(t ir.Terminator) {
	if c.fn == nil || c.block == nil {
		return
	}
	c.block.SetTerminator(t)
}

// ============================================================================
// 模拟栈
// ============================================================================

// pushRegister 分配新寄存器并压栈
func (c *Converter) pushRegister() ir.RegisterID {
	r := c.module.NewRegister()
	c.stackMap[c.stackDepth] = r
	c.stackDepth++
	return r
}

// popRegister 出栈
func (c *Converter) popRegister() (ir.RegisterID, error) {
	if c.stackDepth == 0 {
		return 0, ErrStackUnderflow
	}
	c.stackDepth--
	r, ok := c.stackMap[c.stackDepth]
	if !ok {
		return 0, fmt.Errorf("no register recorded at stack depth %d", c.stackDepth)
	}
	delete(c.stackMap, c.stackDepth)
	return r, nil
}

// toConstant 常量池值转换为 IR 常量
func toConstant(index int, v bytecode.Value) (ir.Constant, error) {
	switch v.Type {
	case bytecode.ValInt:
		return ir.IntConst(v.AsInt()), nil
	case bytecode.ValFloat:
		return ir.FloatConst(v.AsFloat()), nil
	case bytecode.ValString:
		return ir.StringConst(v.AsString()), nil
	case bytecode.ValBool:
		return ir.BoolConst(v.AsBool()), nil
	case bytecode.ValNull:
		return ir.NullConst(), nil
	default:
		return ir.Constant{}, &UnsupportedConstantError{Index: index, Type: v.Type}
	}
}
