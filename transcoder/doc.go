// Package transcoder moves strings across the linear-memory boundary.
//
// Module to host: Decode reads (ptr, len) as strict UTF-8. Malformed input is
// an error, never replaced, and a leading BOM is kept as U+FEFF.
//
// Host to module: Encoder.Encode allocates module memory through the module's
// allocator exports and writes UTF-8. The module learns the written length
// from Encoder.VectorLen, a single out-parameter the caller forwards.
//
// # Allocation strategy
//
// Without a reallocator the string is encoded once and copied into an
// exact-size allocation. With a reallocator the encoder assumes ASCII:
//
//	malloc(units)                     one byte per UTF-16 code unit
//	copy bytes while < 0x80           fast path, no re-encoding
//	realloc(offset + remaining*3)     worst case for the tail
//	encode tail, realloc(written)     shrink to the true length
//
// Units are UTF-16 code units, so a supplementary character counts twice and
// the three-byte bound always holds.
package transcoder
