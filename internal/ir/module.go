package ir

// ============================================================================
// 模块
// ============================================================================

// Module IR 模块
//
// 寄存器和基本块编号由模块统一分配，跨函数唯一。
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*Global
	Metadata  map[string]string

	nextReg   RegisterID
	nextBlock BlockID
}

// NewModule 创建空模块
func NewModule(name string) *Module {
	return &Module{
		Name:     name,
		Metadata: make(map[string]string),
	}
}

// NewRegister 分配一个新的虚拟寄存器
func (m *Module) NewRegister() RegisterID {
	r := m.nextReg
	m.nextReg++
	return r
}

// NewBlockID 分配一个新的基本块编号
func (m *Module) NewBlockID() BlockID {
	b := m.nextBlock
	m.nextBlock++
	return b
}

// RegisterCount 已分配的寄存器数量
func (m *Module) RegisterCount() int {
	return int(m.nextReg)
}

// AddFunction 添加函数
func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}

// NewFunction 创建函数并分配入口块
func (m *Module) NewFunction(name string, ret Type) *Function {
	fn := &Function{Name: name, ReturnType: ret}
	entry := fn.AddBlock(m.NewBlockID())
	fn.Entry = entry.ID
	m.AddFunction(fn)
	return fn
}

// Function 按名称查找函数
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// AddGlobal 添加全局变量
func (m *Module) AddGlobal(g *Global) {
	m.Globals = append(m.Globals, g)
}

// Global 按名称查找全局变量
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// ============================================================================
// 函数
// ============================================================================

// Param 函数参数
type Param struct {
	Reg  RegisterID
	Type Type
}

// Local 局部变量栈槽
type Local struct {
	Name   string
	Type   Type
	Offset int64 // 相对帧基址的字节偏移
}

// LocalSlotSize 每个局部变量栈槽的字节数
const LocalSlotSize = 8

// Function IR 函数
type Function struct {
	Name       string
	Params     []Param
	ReturnType Type
	Entry      BlockID
	Blocks     []*Block
	Locals     []Local
	External   bool // 外部定义，只有声明
	Exported   bool
}

// AddBlock 添加基本块
func (f *Function) AddBlock(id BlockID) *Block {
	b := &Block{ID: id}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block 按编号查找基本块
func (f *Function) Block(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// EntryBlock 入口块
func (f *Function) EntryBlock() *Block {
	return f.Block(f.Entry)
}

// AddLocal 分配局部变量栈槽，返回槽号
func (f *Function) AddLocal(name string, typ Type) int {
	slot := len(f.Locals)
	f.Locals = append(f.Locals, Local{
		Name:   name,
		Type:   typ,
		Offset: int64(slot+1) * LocalSlotSize,
	})
	return slot
}

// FrameSize 局部变量占用的栈空间
func (f *Function) FrameSize() int64 {
	return int64(len(f.Locals)) * LocalSlotSize
}

// ============================================================================
// 基本块
// ============================================================================

// Block 基本块：顺序指令加唯一终结指令
type Block struct {
	ID           BlockID
	Instructions []Instruction
	Terminator   Terminator

	terminated bool
}

// Append 追加指令
func (b *Block) Append(in Instruction) {
	b.Instructions = append(b.Instructions, in)
}

// SetTerminator 设置终结指令，覆盖已有的终结指令
func (b *Block) SetTerminator(t Terminator) {
	b.Terminator = t
	b.terminated = true
}

// Terminated 终结指令是否已被显式设置
func (b *Block) Terminated() bool {
	return b.terminated
}

// ============================================================================
// 全局变量
// ============================================================================

// Global 全局变量
type Global struct {
	Name     string
	Type     Type
	Init     *Constant
	Mutable  bool
	Exported bool
}
