package codec

import (
	"bytes"
	"encoding/binary"
	"errors"

	exif "github.com/dsoprea/go-exif/v3"
)

var jpegExifHeader = []byte("Exif\x00\x00")

// maxSegmentPayload is the largest APP1 payload a 16-bit segment length can describe.
const maxSegmentPayload = 0xffff - 2

var errNoExifSegment = errors.New("no exif segment")

// findJPEGExif walks the JPEG header segments up to SOS and returns the raw
// TIFF-structured EXIF block of the first Exif APP1 segment.
func findJPEGExif(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return nil, errors.New("invalid JPEG SOI")
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			return nil, errors.New("invalid JPEG marker")
		}
		marker := data[pos+1]
		if marker == 0xff {
			pos++
			continue
		}
		if marker == 0xd9 || marker == 0xda { // EOI, SOS
			break
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			pos += 2
			continue
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return nil, errors.New("invalid JPEG segment length")
		}
		payload := data[pos+4 : pos+2+segLen]
		if marker == 0xe1 && bytes.HasPrefix(payload, jpegExifHeader) {
			return payload[len(jpegExifHeader):], nil
		}
		pos += 2 + segLen
	}

	return nil, errNoExifSegment
}

// carryExif copies the EXIF block of src into the freshly encoded JPEG dst.
// dst is returned unchanged when src has no usable EXIF.
func carryExif(src, dst []byte) []byte {
	raw, err := findJPEGExif(src)
	if err != nil {
		return dst
	}
	if _, err := exif.ParseExifHeader(raw); err != nil {
		return dst
	}

	out, err := insertExifSegment(dst, raw)
	if err != nil {
		return dst
	}
	return out
}

// insertExifSegment places an Exif APP1 segment directly after SOI.
func insertExifSegment(jpegData, raw []byte) ([]byte, error) {
	if len(jpegData) < 2 || jpegData[0] != 0xff || jpegData[1] != 0xd8 {
		return nil, errors.New("invalid JPEG SOI")
	}
	payloadLen := len(jpegExifHeader) + len(raw)
	if payloadLen > maxSegmentPayload {
		return nil, errors.New("exif block too large for one segment")
	}

	out := make([]byte, 0, len(jpegData)+4+payloadLen)
	out = append(out, 0xff, 0xd8, 0xff, 0xe1)
	out = binary.BigEndian.AppendUint16(out, uint16(payloadLen+2))
	out = append(out, jpegExifHeader...)
	out = append(out, raw...)
	out = append(out, jpegData[2:]...)
	return out, nil
}
