package gpu

import "unsafe"

// Bytes reinterprets a slice of plain values (matrices, std140 blocks) as
// its backing bytes without copying. T must not contain pointers.
func Bytes[T any](v []T) []byte {
	if len(v) == 0 {
		return nil
	}
	n := len(v) * int(unsafe.Sizeof(v[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), n)
}

// ValueBytes is Bytes for a single value.
func ValueBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}
