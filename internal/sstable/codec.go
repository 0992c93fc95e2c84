package sstable

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/maksimshengeliia/lsmkv/internal/base"
)

// footerSize and offsetSize are the fixed-width pieces of the layout
// described in spec.md §4.3: a 4-byte row count footer, and one 8-byte
// big-endian offset per entry.
const (
	footerSize = 4
	offsetSize = 8
)

// compareBytes is unsigned lexicographic comparison, matching Go's native
// byte-wise slice ordering.
func compareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

func decodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func readFull(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}

// encodeEntry writes a single Cell's entry encoding (spec.md §4.3) to w
// and returns the number of bytes written:
//
//	u32  key_length
//	u8[] key_bytes
//	i64  timestamp_signed
//	if timestamp_signed > 0:      // live
//	    u32  value_length
//	    u8[] value_bytes
//	// if timestamp_signed < 0, the true timestamp is -timestamp_signed
//	// and no value bytes follow (tombstone)
func encodeEntry(w io.Writer, cell base.Cell) (int, error) {
	n := 0
	if err := writeUint32(w, uint32(len(cell.Key))); err != nil {
		return n, err
	}
	n += 4
	if _, err := w.Write(cell.Key); err != nil {
		return n, err
	}
	n += len(cell.Key)

	ts := int64(cell.Value.Timestamp())
	if cell.Value.IsRemoved() {
		ts = -ts
	}
	if err := writeInt64(w, ts); err != nil {
		return n, err
	}
	n += 8

	if !cell.Value.IsRemoved() {
		payload := cell.Value.Data()
		if err := writeUint32(w, uint32(len(payload))); err != nil {
			return n, err
		}
		n += 4
		if _, err := w.Write(payload); err != nil {
			return n, err
		}
		n += len(payload)
	}
	return n, nil
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

// decodeEntry reads a single Cell's entry encoding from r, returning the
// Cell and the number of bytes consumed.
func decodeEntry(r io.Reader) (base.Cell, int, error) {
	n := 0
	keyLen, err := readUint32(r)
	if err != nil {
		return base.Cell{}, n, err
	}
	n += 4

	key := make([]byte, keyLen)
	if _, err := readFull(r, key); err != nil {
		return base.Cell{}, n, err
	}
	n += len(key)

	ts, err := readInt64(r)
	if err != nil {
		return base.Cell{}, n, err
	}
	n += 8

	if ts > 0 {
		valueLen, err := readUint32(r)
		if err != nil {
			return base.Cell{}, n, err
		}
		n += 4
		payload := make([]byte, valueLen)
		if _, err := readFull(r, payload); err != nil {
			return base.Cell{}, n, err
		}
		n += len(payload)
		return base.Cell{Key: key, Value: base.Live(base.Timestamp(ts), payload)}, n, nil
	}

	return base.Cell{Key: key, Value: base.Tombstone(base.Timestamp(-ts))}, n, nil
}
