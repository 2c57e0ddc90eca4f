package scene

import (
	"ship-renderer/internal/graphics/gpu"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// view is a resolved accessor: where its elements live and how to read them.
type view struct {
	buffer     int
	offset     int
	count      int
	size       int32
	typ        gpu.Enum
	normalized bool
}

func (v view) byteLen() int { return v.count * int(v.size) * gpu.SizeOf(v.typ) }

func componentType(c gltf.ComponentType) (gpu.Enum, error) {
	switch c {
	case gltf.ComponentByte:
		return gpu.Byte, nil
	case gltf.ComponentUbyte:
		return gpu.UnsignedByte, nil
	case gltf.ComponentShort:
		return gpu.Short, nil
	case gltf.ComponentUshort:
		return gpu.UnsignedShort, nil
	case gltf.ComponentUint:
		return gpu.UnsignedInt, nil
	case gltf.ComponentFloat:
		return gpu.Float, nil
	}
	return 0, errors.Wrapf(ErrUnsupported, "component type %v", c)
}

func componentCount(t gltf.AccessorType) (int32, error) {
	switch t {
	case gltf.AccessorScalar:
		return 1, nil
	case gltf.AccessorVec2:
		return 2, nil
	case gltf.AccessorVec3:
		return 3, nil
	case gltf.AccessorVec4:
		return 4, nil
	}
	return 0, errors.Wrapf(ErrUnsupported, "accessor type %v", t)
}

// resolve validates accessor i against the document and buffer data.
func (l *loader) resolve(i uint32) (view, error) {
	if int(i) >= len(l.doc.Accessors) {
		return view{}, errors.Errorf("accessor %d out of range", i)
	}
	a := l.doc.Accessors[i]
	if a.BufferView == nil {
		return view{}, errors.Wrapf(ErrUnsupported, "accessor %d without buffer view", i)
	}
	bv, err := l.bufferView(*a.BufferView)
	if err != nil {
		return view{}, errors.Wrapf(err, "accessor %d", i)
	}
	typ, err := componentType(a.ComponentType)
	if err != nil {
		return view{}, errors.Wrapf(err, "accessor %d", i)
	}
	size, err := componentCount(a.Type)
	if err != nil {
		return view{}, errors.Wrapf(err, "accessor %d", i)
	}
	v := view{
		buffer:     int(bv.Buffer),
		offset:     int(bv.ByteOffset) + int(a.ByteOffset),
		count:      int(a.Count),
		size:       size,
		typ:        typ,
		normalized: a.Normalized,
	}
	if end := int(a.ByteOffset) + v.byteLen(); end > int(bv.ByteLength) {
		return view{}, errors.Errorf("accessor %d: %d bytes overrun buffer view %d of %d bytes",
			i, end, *a.BufferView, bv.ByteLength)
	}
	return v, nil
}

func (l *loader) bufferView(i uint32) (*gltf.BufferView, error) {
	if int(i) >= len(l.doc.BufferViews) {
		return nil, errors.Errorf("buffer view %d out of range", i)
	}
	bv := l.doc.BufferViews[i]
	if bv.ByteStride != 0 {
		return nil, errors.Wrapf(ErrUnsupported, "buffer view %d has byteStride", i)
	}
	if int(bv.Buffer) >= len(l.buffers) {
		return nil, errors.Errorf("buffer view %d: buffer %d out of range", i, bv.Buffer)
	}
	if end := int(bv.ByteOffset) + int(bv.ByteLength); end > len(l.buffers[bv.Buffer]) {
		return nil, errors.Errorf("buffer view %d ends at %d past buffer %d", i, end, bv.Buffer)
	}
	return bv, nil
}

func (l *loader) bytes(v view) []byte {
	return l.buffers[v.buffer][v.offset : v.offset+v.byteLen()]
}

// keyframes reads float accessor i after checking it holds size components
// per element. The result is []float32, [][3]float32 or [][4]float32.
func (l *loader) keyframes(i uint32, size int32) (any, error) {
	v, err := l.resolve(i)
	if err != nil {
		return nil, err
	}
	if v.typ != gpu.Float || v.size != size {
		return nil, errors.Wrapf(ErrUnsupported, "accessor %d: want %d floats per element", i, size)
	}
	data, err := modeler.ReadAccessor(&l.doc, l.doc.Accessors[i], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "accessor %d", i)
	}
	return data, nil
}
