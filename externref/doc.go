// Package externref implements the table of host values a module addresses
// by integer handle.
//
// Slots 0 to 3 hold undefined, null, true and false. They are installed by
// Init and can be read but never written or freed. Allocation pops a LIFO free
// list; when it is empty the table grows by a fixed step and the new slots
// are handed out lowest index first.
//
//	t := externref.New()
//	t.Init()
//	h := t.Alloc(hostValue) // 4
//	v, _ := t.Get(h)
//	_ = t.Free(h)
package externref
