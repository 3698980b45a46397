package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"time"

	"execgate/internal/transport"
)

// Record layout, little endian:
//
//	0:4   magic "EXF1"
//	4:6   version
//	6:8   header size
//	8     encoding
//	9     reserved
//	10:12 channel length
//	12:16 payload length
//	16:24 frame sequence
//	24:32 received at, unix nanoseconds
//
// followed by the channel, the payload and a CRC32C over all of the above.
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 32
	recordChecksumSize        = 4
	maxChannelLen             = 1<<16 - 1
)

var (
	recordMagic = [4]byte{'E', 'X', 'F', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("recorder: invalid magic")
	ErrUnsupportedRecordVer    = errors.New("recorder: unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("recorder: invalid header size")
	ErrChannelTooLong          = errors.New("recorder: channel name too long")
)

type recordHeader struct {
	encoding   transport.Encoding
	channelLen int
	payloadLen uint32
	seq        uint64
	receivedAt int64
}

func encodeHeader(dst []byte, f transport.Frame) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	dst[8] = byte(f.Encoding)
	dst[9] = 0
	binary.LittleEndian.PutUint16(dst[10:12], uint16(len(f.Channel)))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(len(f.Payload)))
	binary.LittleEndian.PutUint64(dst[16:24], f.Seq)
	var recv int64
	if !f.ReceivedAt.IsZero() {
		recv = f.ReceivedAt.UnixNano()
	}
	binary.LittleEndian.PutUint64(dst[24:32], uint64(recv))
}

func checksum(parts ...[]byte) uint32 {
	var crc uint32
	for _, p := range parts {
		crc = crc32.Update(crc, crcTable, p)
	}
	return crc
}

func decodeRecordHeader(src []byte) (recordHeader, error) {
	if len(src) < recordHeaderSize {
		return recordHeader{}, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return recordHeader{}, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return recordHeader{}, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return recordHeader{}, ErrInvalidRecordHeaderSize
	}
	return recordHeader{
		encoding:   transport.Encoding(src[8]),
		channelLen: int(binary.LittleEndian.Uint16(src[10:12])),
		payloadLen: binary.LittleEndian.Uint32(src[12:16]),
		seq:        binary.LittleEndian.Uint64(src[16:24]),
		receivedAt: int64(binary.LittleEndian.Uint64(src[24:32])),
	}, nil
}

func (h recordHeader) frame(channel string, payload []byte) transport.Frame {
	f := transport.Frame{
		Encoding: h.encoding,
		Channel:  channel,
		Seq:      h.seq,
		Payload:  payload,
	}
	if h.receivedAt != 0 {
		f.ReceivedAt = time.Unix(0, h.receivedAt).UTC()
	}
	return f
}
