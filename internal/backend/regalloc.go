// regalloc.go - 寄存器分配器
//
// 线性扫描寄存器分配 (Linear Scan Register Allocation)：
// 1. 计算每个虚拟寄存器的活跃区间（从定义到最后使用）
// 2. 按起始位置排序活跃区间
// 3. 线性扫描，为每个区间分配物理寄存器
// 4. 没有可用寄存器时，溢出结束最晚的区间
//
// 存在回边时，与循环范围重叠的区间被扩展到覆盖整个循环。

package backend

import (
	"sort"

	"github.com/tangzhangming/solac/internal/ir"
)

// RegAllocation 寄存器分配结果
type RegAllocation struct {
	// ValueRegs 虚拟寄存器 -> 物理寄存器下标
	ValueRegs map[ir.RegisterID]int

	// SpillSlots 虚拟寄存器 -> 溢出槽编号
	SpillSlots map[ir.RegisterID]int

	// SpillCount 溢出槽数量
	SpillCount int

	Intervals []*LiveInterval
}

// Reg 返回虚拟寄存器对应的物理寄存器下标，-1 表示溢出
func (alloc *RegAllocation) Reg(r ir.RegisterID) int {
	if reg, ok := alloc.ValueRegs[r]; ok {
		return reg
	}
	return -1
}

// SpillSlot 返回溢出槽编号，-1 表示未溢出
func (alloc *RegAllocation) SpillSlot(r ir.RegisterID) int {
	if slot, ok := alloc.SpillSlots[r]; ok {
		return slot
	}
	return -1
}

// isSpilled 检查虚拟寄存器是否被溢出
func (alloc *RegAllocation) isSpilled(r ir.RegisterID) bool {
	_, ok := alloc.SpillSlots[r]
	return ok
}

// ============================================================================
// 活跃区间
// ============================================================================

// LiveInterval 活跃区间
type LiveInterval struct {
	Value     ir.RegisterID
	Start     int // 开始位置（线性指令编号）
	End       int // 结束位置
	Reg       int // 物理寄存器下标，-1 表示未分配
	SpillSlot int // 溢出槽，-1 表示未溢出
	Fixed     bool
}

func newLiveInterval(v ir.RegisterID, start int) *LiveInterval {
	return &LiveInterval{Value: v, Start: start, End: start, Reg: -1, SpillSlot: -1}
}

// Extend 扩展区间终点
func (li *LiveInterval) Extend(pos int) {
	if pos > li.End {
		li.End = pos
	}
}

// Overlaps 检查两个区间是否重叠
func (li *LiveInterval) Overlaps(other *LiveInterval) bool {
	return li.Start <= other.End && other.Start <= li.End
}

// ============================================================================
// 寄存器分配器
// ============================================================================

// RegisterAllocator 寄存器分配器
type RegisterAllocator struct {
	numRegs   int
	intervals []*LiveInterval
	active    []*LiveInterval // 按结束位置排序

	freeRegs []bool

	nextSpillSlot int
	allocation    *RegAllocation
}

// NewRegisterAllocator 创建寄存器分配器
func NewRegisterAllocator(numRegs int) *RegisterAllocator {
	return &RegisterAllocator{
		numRegs:  numRegs,
		freeRegs: make([]bool, numRegs),
	}
}

// Allocate 为函数执行寄存器分配
//
// 参数总是放在溢出槽中，序言从调用约定寄存器写入。
func (ra *RegisterAllocator) Allocate(fn *ir.Function) *RegAllocation {
	ra.allocation = &RegAllocation{
		ValueRegs:  make(map[ir.RegisterID]int),
		SpillSlots: make(map[ir.RegisterID]int),
	}
	ra.active = nil
	ra.nextSpillSlot = 0
	for i := range ra.freeRegs {
		ra.freeRegs[i] = true
	}

	ra.computeLiveIntervals(fn)
	ra.linearScan()

	ra.allocation.SpillCount = ra.nextSpillSlot
	ra.allocation.Intervals = ra.intervals
	return ra.allocation
}

// ============================================================================
// 活跃区间计算
// ============================================================================

func (ra *RegisterAllocator) computeLiveIntervals(fn *ir.Function) {
	intervals := make(map[ir.RegisterID]*LiveInterval)
	touch := func(r ir.RegisterID, pos int) {
		interval, ok := intervals[r]
		if !ok {
			interval = newLiveInterval(r, pos)
			intervals[r] = interval
		}
		interval.Extend(pos)
	}

	for _, p := range fn.Params {
		interval := newLiveInterval(p.Reg, 0)
		interval.Fixed = true
		intervals[p.Reg] = interval
	}

	pos := 0
	blockStart := make(map[ir.BlockID]int, len(fn.Blocks))
	blockEnd := make(map[ir.BlockID]int, len(fn.Blocks))
	for _, block := range fn.Blocks {
		blockStart[block.ID] = pos
		for _, instr := range block.Instructions {
			for _, arg := range instr.Uses() {
				touch(arg, pos)
			}
			if instr.HasDest {
				touch(instr.Dest, pos)
			}
			pos++
		}
		for _, arg := range block.Terminator.Uses() {
			touch(arg, pos)
		}
		blockEnd[block.ID] = pos
		pos++
	}

	// 回边：目标块不晚于当前块
	for _, block := range fn.Blocks {
		for _, succ := range block.Terminator.Successors() {
			start, ok := blockStart[succ]
			if !ok || start > blockStart[block.ID] {
				continue
			}
			loop := &LiveInterval{Start: start, End: blockEnd[block.ID]}
			for _, interval := range intervals {
				if interval.Overlaps(loop) {
					if interval.Start > loop.Start {
						interval.Start = loop.Start
					}
					interval.Extend(loop.End)
				}
			}
		}
	}

	ra.intervals = make([]*LiveInterval, 0, len(intervals))
	for _, interval := range intervals {
		ra.intervals = append(ra.intervals, interval)
	}
	sort.Slice(ra.intervals, func(i, j int) bool {
		if ra.intervals[i].Start != ra.intervals[j].Start {
			return ra.intervals[i].Start < ra.intervals[j].Start
		}
		return ra.intervals[i].Value < ra.intervals[j].Value
	})
}

// ============================================================================
// 线性扫描
// ============================================================================

func (ra *RegisterAllocator) linearScan() {
	for _, current := range ra.intervals {
		ra.expireOldIntervals(current)

		if current.Fixed {
			ra.spillInterval(current)
			continue
		}

		reg := ra.allocateFreeReg()
		if reg < 0 {
			ra.spillAtInterval(current)
			continue
		}
		current.Reg = reg
		ra.allocation.ValueRegs[current.Value] = reg
		ra.addToActive(current)
	}
}

// expireOldIntervals 释放已经结束的区间
func (ra *RegisterAllocator) expireOldIntervals(current *LiveInterval) {
	kept := ra.active[:0]
	for _, active := range ra.active {
		if active.End < current.Start {
			ra.freeRegs[active.Reg] = true
			continue
		}
		kept = append(kept, active)
	}
	ra.active = kept
}

func (ra *RegisterAllocator) allocateFreeReg() int {
	for i := 0; i < ra.numRegs; i++ {
		if ra.freeRegs[i] {
			ra.freeRegs[i] = false
			return i
		}
	}
	return -1
}

// spillAtInterval 溢出结束最晚的区间
func (ra *RegisterAllocator) spillAtInterval(current *LiveInterval) {
	if len(ra.active) == 0 {
		ra.spillInterval(current)
		return
	}

	latest := ra.active[len(ra.active)-1]
	if latest.End > current.End {
		current.Reg = latest.Reg
		ra.allocation.ValueRegs[current.Value] = current.Reg

		ra.spillInterval(latest)
		ra.active = ra.active[:len(ra.active)-1]
		ra.addToActive(current)
	} else {
		ra.spillInterval(current)
	}
}

func (ra *RegisterAllocator) spillInterval(interval *LiveInterval) {
	slot := ra.nextSpillSlot
	ra.nextSpillSlot++

	interval.SpillSlot = slot
	interval.Reg = -1

	ra.allocation.SpillSlots[interval.Value] = slot
	delete(ra.allocation.ValueRegs, interval.Value)
}

// addToActive 插入活跃列表，保持按结束位置排序
func (ra *RegisterAllocator) addToActive(interval *LiveInterval) {
	i := sort.Search(len(ra.active), func(i int) bool {
		return ra.active[i].End >= interval.End
	})
	ra.active = append(ra.active, nil)
	copy(ra.active[i+1:], ra.active[i:])
	ra.active[i] = interval
}
