package pool

import "sync"

var int32SlicePool = sync.Pool{
	New: func() any { return &[]int32{} },
}

// GetInt32Slice retrieves and resizes an int32 slice from the pool.
//
// The returned slice has length equal to size; its contents are not
// zeroed. The caller must call the returned cleanup function (typically
// with defer) to return the slice to the pool.
//
// Example:
//
//	samples, cleanup := pool.GetInt32Slice(1000)
//	defer cleanup()
func GetInt32Slice(size int) ([]int32, func()) {
	ptr, _ := int32SlicePool.Get().(*[]int32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]int32, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { int32SlicePool.Put(ptr) }
}
