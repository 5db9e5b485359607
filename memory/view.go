package memory

import (
	"encoding/binary"
	"math"
	"unsafe"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// View caches a byte slice over linear memory.
type View struct {
	mem       wasmbridge.Memory
	cache     []byte
	refreshes uint64
}

// NewView creates a view over mem. A nil mem yields empty views.
func NewView(mem wasmbridge.Memory) *View {
	return &View{mem: mem}
}

// Bytes returns the current byte view of the whole memory.
func (v *View) Bytes() []byte {
	if v.mem == nil {
		return nil
	}
	if size, stale := v.stale(); stale {
		buf, ok := v.mem.Read(0, size)
		if !ok {
			v.cache = nil
			return nil
		}
		v.cache = buf
		v.refreshes++
	}
	return v.cache
}

// stale reports whether the cached slice no longer covers the live buffer.
// A size change covers growth; the identity probe covers a buffer that was
// swapped without changing size.
func (v *View) stale() (uint32, bool) {
	size := v.mem.Size()
	if len(v.cache) == 0 || uint32(len(v.cache)) != size {
		return size, true
	}
	probe, ok := v.mem.Read(0, 1)
	if !ok || unsafe.SliceData(probe) != unsafe.SliceData(v.cache) {
		return size, true
	}
	return size, false
}

// Refreshes returns how many times the view was re-derived.
func (v *View) Refreshes() uint64 {
	return v.refreshes
}

// Slice returns n bytes at ptr from the current view.
func (v *View) Slice(ptr, n uint32) ([]byte, error) {
	b := v.Bytes()
	end := uint64(ptr) + uint64(n)
	if end > uint64(len(b)) {
		return nil, errors.OutOfBounds(errors.PhaseDecode, ptr, n, len(b))
	}
	return b[ptr:end:end], nil
}

// Check reports an error unless n bytes at ptr lie inside the current view.
func (v *View) Check(ptr, n uint32) error {
	size := len(v.Bytes())
	if uint64(ptr)+uint64(n) > uint64(size) {
		return errors.OutOfBounds(errors.PhaseEncode, ptr, n, size)
	}
	return nil
}

// Write copies data to ptr in the current view.
func (v *View) Write(ptr uint32, data []byte) error {
	b := v.Bytes()
	end := uint64(ptr) + uint64(len(data))
	if end > uint64(len(b)) {
		return errors.OutOfBounds(errors.PhaseEncode, ptr, uint32(len(data)), len(b))
	}
	copy(b[ptr:end], data)
	return nil
}

// DataView returns the structured field view.
func (v *View) DataView() DataView {
	return DataView{view: v}
}

// DataView reads and writes little-endian fields. Every access goes through
// View.Bytes, so it never touches a stale buffer.
type DataView struct {
	view *View
}

func (d DataView) field(offset, width uint32, phase errors.Phase) ([]byte, error) {
	b := d.view.Bytes()
	end := uint64(offset) + uint64(width)
	if end > uint64(len(b)) {
		return nil, errors.OutOfBounds(phase, offset, width, len(b))
	}
	return b[offset:end], nil
}

// Uint32 reads an unsigned 32-bit little-endian value.
func (d DataView) Uint32(offset uint32) (uint32, error) {
	b, err := d.field(offset, 4, errors.PhaseDecode)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a signed 32-bit little-endian value.
func (d DataView) Int32(offset uint32) (int32, error) {
	u, err := d.Uint32(offset)
	return int32(u), err
}

// SetUint32 writes an unsigned 32-bit little-endian value.
func (d DataView) SetUint32(offset, value uint32) error {
	b, err := d.field(offset, 4, errors.PhaseEncode)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// SetInt32 writes a signed 32-bit little-endian value.
func (d DataView) SetInt32(offset uint32, value int32) error {
	return d.SetUint32(offset, uint32(value))
}

// Float64 reads a little-endian IEEE 754 double.
func (d DataView) Float64(offset uint32) (float64, error) {
	b, err := d.field(offset, 8, errors.PhaseDecode)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// SetFloat64 writes a little-endian IEEE 754 double.
func (d DataView) SetFloat64(offset uint32, value float64) error {
	b, err := d.field(offset, 8, errors.PhaseEncode)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(value))
	return nil
}
