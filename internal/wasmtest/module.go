// Package wasmtest assembles small core modules for tests that need a real
// guest behind the bridge.
package wasmtest

import (
	"slices"

	"github.com/tetratelabs/wazero/api"
)

const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
	sectionData     byte = 11

	kindFunc   byte = 0x00
	kindMemory byte = 0x02

	funcTypeByte byte = 0x60
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []api.ValueType
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	data   []byte
}

// Module is a module under construction. Imports must be declared before
// any function is defined so indices stay stable.
type Module struct {
	types    []funcType
	imports  []importFunc
	funcs    []function
	globals  []int32
	exports  []export
	data     []segment
	memPages uint32
	hasMem   bool
}

// New creates an empty module.
func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []api.ValueType) uint32 {
	for i, t := range m.types {
		if slices.Equal(t.params, params) && slices.Equal(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *Module) Import(module, name string, params, results []api.ValueType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: import declared after a function")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its function index. body is the
// instruction sequence without the trailing end opcode.
func (m *Module) Func(params, results, locals []api.ValueType, body ...[]byte) uint32 {
	m.funcs = append(m.funcs, function{
		typeIdx: m.typeIndex(params, results),
		locals:  locals,
		body:    slices.Concat(body...),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Export exports a function.
func (m *Module) Export(name string, funcIdx uint32) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: funcIdx})
	return m
}

// Memory defines memory 0 with pages initial pages and exports it as name.
func (m *Module) Memory(name string, pages uint32) *Module {
	m.hasMem = true
	m.memPages = pages
	m.exports = append(m.exports, export{name: name, kind: kindMemory})
	return m
}

// Global defines a mutable i32 global and returns its index.
func (m *Module) Global(init int32) uint32 {
	m.globals = append(m.globals, init)
	return uint32(len(m.globals) - 1)
}

// Data places bytes at offset in memory 0.
func (m *Module) Data(offset uint32, data []byte) *Module {
	m.data = append(m.data, segment{offset: offset, data: data})
	return m
}

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	w := &writer{}
	w.raw(header)

	if len(m.types) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.types)))
		for _, t := range m.types {
			sec.byte(funcTypeByte)
			writeValTypes(sec, t.params)
			writeValTypes(sec, t.results)
		}
		w.section(sectionType, sec)
	}

	if len(m.imports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.byte(kindFunc)
			sec.u32(imp.typeIdx)
		}
		w.section(sectionImport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.u32(f.typeIdx)
		}
		w.section(sectionFunction, sec)
	}

	if m.hasMem {
		sec := &writer{}
		sec.u32(1)
		sec.byte(0x00) // no maximum
		sec.u32(m.memPages)
		w.section(sectionMemory, sec)
	}

	if len(m.globals) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.byte(api.ValueTypeI32)
			sec.byte(0x01) // mutable
			sec.raw(I32Const(g))
			sec.byte(opEnd)
		}
		w.section(sectionGlobal, sec)
	}

	if len(m.exports) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.name(e.name)
			sec.byte(e.kind)
			sec.u32(e.idx)
		}
		w.section(sectionExport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			body := &writer{}
			body.u32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.u32(1)
				body.byte(l)
			}
			body.raw(f.body)
			body.byte(opEnd)
			sec.u32(uint32(len(body.bytes())))
			sec.raw(body.bytes())
		}
		w.section(sectionCode, sec)
	}

	if len(m.data) > 0 {
		sec := &writer{}
		sec.u32(uint32(len(m.data)))
		for _, d := range m.data {
			sec.u32(0) // active, memory 0
			sec.raw(I32Const(int32(d.offset)))
			sec.byte(opEnd)
			sec.u32(uint32(len(d.data)))
			sec.raw(d.data)
		}
		w.section(sectionData, sec)
	}

	return w.bytes()
}

func writeValTypes(w *writer, types []api.ValueType) {
	w.u32(uint32(len(types)))
	for _, t := range types {
		w.byte(t)
	}
}

// BumpMalloc defines a malloc(size, align) -> ptr export that hands out
// memory upward from start and never frees.
func (m *Module) BumpMalloc(name string, start int32) uint32 {
	i32 := api.ValueTypeI32
	next := m.Global(start)
	idx := m.Func([]api.ValueType{i32, i32}, []api.ValueType{i32}, nil,
		GlobalGet(next),
		GlobalGet(next), LocalGet(0), I32Add(), GlobalSet(next),
	)
	m.Export(name, idx)
	return idx
}
