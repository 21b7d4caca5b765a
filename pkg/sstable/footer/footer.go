// Package footer encodes the fixed-size tail of a table: the offset at which
// the block meta sequence begins.
package footer

import (
	"encoding/binary"
	"fmt"

	"github.com/KevoDB/blocktable/pkg/common/errs"
)

// Size is the fixed size of the footer in bytes
const Size = 4

// Encode appends the footer for metaOffset to dst
func Encode(dst []byte, metaOffset uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, metaOffset)
}

// Decode reads the meta offset from the last Size bytes of data
func Decode(data []byte) (uint32, error) {
	if len(data) < Size {
		return 0, fmt.Errorf("%w: footer needs %d bytes, got %d", errs.ErrOutOfBounds, Size, len(data))
	}
	return binary.BigEndian.Uint32(data[len(data)-Size:]), nil
}
