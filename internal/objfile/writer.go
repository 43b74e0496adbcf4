package objfile

import (
	"bytes"
	"encoding/binary"
)

// ByteWriter 小端序字节写入器
type ByteWriter struct {
	buf bytes.Buffer
}

// NewByteWriter 创建新的字节写入器
func NewByteWriter() *ByteWriter {
	return &ByteWriter{}
}

// WriteU8 写入无符号字节
func (w *ByteWriter) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU16 写入无符号短整型 (小端序)
func (w *ByteWriter) WriteU16(v uint16) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

// WriteU32 写入无符号整型 (小端序)
func (w *ByteWriter) WriteU32(v uint32) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

// WriteU64 写入无符号长整型 (小端序)
func (w *ByteWriter) WriteU64(v uint64) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

// WriteBytes 写入字节数组
func (w *ByteWriter) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteString 写入定长字段，不足补零，超出截断
func (w *ByteWriter) WriteString(s string, size int) {
	field := make([]byte, size)
	copy(field, s)
	w.buf.Write(field)
}

// Zero 写入 n 个零字节
func (w *ByteWriter) Zero(n int) {
	if n > 0 {
		w.buf.Write(make([]byte, n))
	}
}

// PadTo 补零直到长度为 align 的整数倍
func (w *ByteWriter) PadTo(align int) {
	if rem := w.buf.Len() % align; rem != 0 {
		w.Zero(align - rem)
	}
}

// Bytes 返回字节数组
func (w *ByteWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Len 返回当前长度
func (w *ByteWriter) Len() int {
	return w.buf.Len()
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
