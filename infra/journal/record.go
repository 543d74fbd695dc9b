package journal

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// ErrCorruptRecord reports a record whose checksum does not match.
var ErrCorruptRecord = errors.New("corrupt journal record")

// record framing: [time:8][len:4][payload][crc:4], little-endian,
// CRC32 (IEEE) over the payload bytes.
func encodeRecord(ts int64, line string) []byte {
	payload := []byte(line)
	buf := make([]byte, 12+len(payload)+4)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ts))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(payload)))
	copy(buf[12:], payload)
	crc := crc32.ChecksumIEEE(payload)
	binary.LittleEndian.PutUint32(buf[12+len(payload):], crc)
	return buf
}

// ReadSegment decodes a sealed segment, invoking fn per record. It
// stops at EOF or the first corrupt record.
func ReadSegment(r io.Reader, fn func(ts int64, line string) error) error {
	header := make([]byte, 12)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		ts := int64(binary.LittleEndian.Uint64(header[0:8]))
		n := binary.LittleEndian.Uint32(header[8:12])

		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}
		var crcBuf [4]byte
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return err
		}
		if binary.LittleEndian.Uint32(crcBuf[:]) != crc32.ChecksumIEEE(payload) {
			return ErrCorruptRecord
		}
		if err := fn(ts, string(payload)); err != nil {
			return err
		}
	}
}
