// Package wire implements the on-the-wire row encoding: component C9.
// Each message is a flat list of column values joined by a single
// record-separator byte (ASCII 30, \x1E), in column-declaration order.
// Optional LZ4 framing lets a table trade CPU for bandwidth on the
// transport hop.
package wire

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"

	"github.com/linuxfood/setab/row"
)

// ColSep is the field separator used between encoded column values.
const ColSep = '\x1E'

// ErrColumnCount is returned by Parse when a message's field count
// doesn't match the table's declared schema.
var ErrColumnCount = errors.New("wire: message column count does not match schema")

// ErrBadInteger is returned by Parse when an INTEGER column's field
// can't be parsed as one.
var ErrBadInteger = errors.New("wire: expected integer column value")

// Parse splits a raw message into column Values according to schema,
// the table's declared column list (including the leading ts column).
func Parse(msg []byte, schema []row.Column) ([]row.Value, error) {
	fields := strings.Split(string(msg), string(ColSep))
	if len(fields) != len(schema) {
		return nil, errors.Wrapf(ErrColumnCount, "got %d fields, want %d", len(fields), len(schema))
	}

	values := make([]row.Value, len(schema))
	for i, col := range schema {
		switch col.Type {
		case row.Integer:
			n, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrBadInteger, "column %q: %q", col.Name, fields[i])
			}
			values[i] = row.IntValue(n)
		case row.Text:
			values[i] = row.TextValue(fields[i])
		default:
			return nil, errors.Errorf("wire: unknown column type for %q", col.Name)
		}
	}
	return values, nil
}

// Encode joins raw field strings (already stringified by the caller,
// e.g. from sqlite3_value blobs) into a single wire message.
func Encode(fields []string) []byte {
	return []byte(strings.Join(fields, string(ColSep)))
}

// Compress frames payload with LZ4, for tables configured with
// compress=true. A compressed frame is a marker byte (1), the original
// payload length as a big-endian uint32, then the compressed bytes; an
// incompressible payload is framed with marker byte 0 and stored as-is.
// The length travels in the frame itself so Decompress never needs a
// side channel to know how large a buffer to allocate.
func Compress(payload []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, buf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wire: lz4 compress")
	}
	if n == 0 {
		// Incompressible input: lz4 declines, fall back to storing raw.
		return append([]byte{0}, payload...), nil
	}
	framed := make([]byte, 0, 5+n)
	framed = append(framed, 1)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	framed = append(framed, lenBuf[:]...)
	framed = append(framed, buf[:n]...)
	return framed, nil
}

// Decompress reverses Compress using only the frame itself.
func Decompress(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, errors.New("wire: empty frame")
	}
	marker, body := framed[0], framed[1:]
	if marker == 0 {
		return body, nil
	}
	if len(body) < 4 {
		return nil, errors.New("wire: truncated compressed frame")
	}
	size := binary.BigEndian.Uint32(body[:4])
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body[4:], out)
	if err != nil {
		return nil, errors.Wrap(err, "wire: lz4 decompress")
	}
	return out[:n], nil
}
