package wasmtest

const (
	opUnreachable byte = 0x00
	opEnd         byte = 0x0b
	opCall        byte = 0x10
	opDrop        byte = 0x1a
	opLocalGet    byte = 0x20
	opGlobalGet   byte = 0x23
	opGlobalSet   byte = 0x24
	opI32Load     byte = 0x28
	opI32Const    byte = 0x41
	opI64Const    byte = 0x42
	opI32Add      byte = 0x6a
)

func encode(op byte, imm func(w *writer)) []byte {
	w := &writer{}
	w.byte(op)
	if imm != nil {
		imm(w)
	}
	return w.bytes()
}

// I32Const pushes v.
func I32Const(v int32) []byte {
	return encode(opI32Const, func(w *writer) { w.s32(v) })
}

// I64Const pushes v.
func I64Const(v int64) []byte {
	return encode(opI64Const, func(w *writer) { w.s64(v) })
}

// Call calls the function at idx.
func Call(idx uint32) []byte {
	return encode(opCall, func(w *writer) { w.u32(idx) })
}

// LocalGet pushes local idx.
func LocalGet(idx uint32) []byte {
	return encode(opLocalGet, func(w *writer) { w.u32(idx) })
}

// GlobalGet pushes global idx.
func GlobalGet(idx uint32) []byte {
	return encode(opGlobalGet, func(w *writer) { w.u32(idx) })
}

// GlobalSet pops into global idx.
func GlobalSet(idx uint32) []byte {
	return encode(opGlobalSet, func(w *writer) { w.u32(idx) })
}

// I32Load loads a 4-byte aligned i32 at the popped address plus offset.
func I32Load(offset uint32) []byte {
	return encode(opI32Load, func(w *writer) {
		w.u32(2)
		w.u32(offset)
	})
}

// I32Add adds the two topmost values.
func I32Add() []byte { return []byte{opI32Add} }

// Drop discards the topmost value.
func Drop() []byte { return []byte{opDrop} }

// Unreachable traps.
func Unreachable() []byte { return []byte{opUnreachable} }
