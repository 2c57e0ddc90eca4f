package scene

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
)

// splitGLB returns the JSON chunk and the optional BIN chunk of a binary
// glTF container.
func splitGLB(data []byte) (doc, bin []byte, err error) {
	if len(data) < 12 {
		return nil, nil, errors.Errorf("glb: %d bytes is too short for a header", len(data))
	}
	le := binary.LittleEndian
	if magic := le.Uint32(data[0:]); magic != glbMagic {
		return nil, nil, errors.Errorf("glb: bad magic 0x%08x", magic)
	}
	if v := le.Uint32(data[4:]); v != glbVersion {
		return nil, nil, errors.Wrapf(ErrUnsupported, "glb version %d", v)
	}
	total := int(le.Uint32(data[8:]))
	if total > len(data) {
		return nil, nil, errors.Errorf("glb: header length %d exceeds data length %d", total, len(data))
	}

	off := 12
	for off+8 <= total {
		n := int(le.Uint32(data[off:]))
		typ := le.Uint32(data[off+4:])
		off += 8
		if n < 0 || off+n > total {
			return nil, nil, errors.Errorf("glb: chunk of %d bytes at %d overruns container", n, off)
		}
		chunk := data[off : off+n]
		switch {
		case typ == glbChunkJSON && doc == nil:
			doc = chunk
		case typ == glbChunkBIN && bin == nil && doc != nil:
			bin = chunk
		}
		// chunks are padded to 4 bytes
		off += (n + 3) &^ 3
	}
	if doc == nil {
		return nil, nil, errors.New("glb: missing JSON chunk")
	}
	return doc, bin, nil
}
