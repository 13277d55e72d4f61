package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"
)

// ErrInvalidDocument indicates bytes that do not parse as a document container.
var ErrInvalidDocument = errors.New("invalid document container")

// File is an attachment carried inside a Document.
type File struct {
	Name string
	Data []byte
}

// Document is rich text plus attachments. Attachments are referenced from
// the text through FileRef placeholders.
type Document struct {
	Text  string
	Files []File
}

// FileRef returns the placeholder used in Document.Text for attachment i.
func FileRef(i int) string { return fmt.Sprintf("plk-file:%d", i) }

// PackDocument serializes doc as
// [u32 compressed text length][LZ-String text][u16 file count]
// followed by [u16 name length][name][u32 data length][data] per file.
// All integers are big-endian.
func PackDocument(doc Document) ([]byte, error) {
	if len(doc.Files) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d files", ErrInvalidDocument, len(doc.Files))
	}
	text := LZCompress(doc.Text)

	size := 4 + len(text) + 2
	for _, f := range doc.Files {
		if len(f.Name) > math.MaxUint16 || uint64(len(f.Data)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: file %q too large", ErrInvalidDocument, f.Name)
		}
		size += 2 + len(f.Name) + 4 + len(f.Data)
	}

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(text)))
	buf = append(buf, text...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(doc.Files)))
	for _, f := range doc.Files {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(f.Name)))
		buf = append(buf, f.Name...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Data)))
		buf = append(buf, f.Data...)
	}
	return buf, nil
}

// LooksLikeDocument applies the cheap header test used before attempting
// UnpackDocument on a decrypted payload.
func LooksLikeDocument(data []byte) bool {
	if len(data) < 6 {
		return false
	}
	textLen := binary.BigEndian.Uint32(data)
	return textLen > 0 && uint64(textLen) < uint64(len(data)) && uint64(textLen)+6 <= uint64(len(data))
}

// UnpackDocument parses a container produced by PackDocument.
func UnpackDocument(data []byte) (Document, error) {
	var doc Document
	if !LooksLikeDocument(data) {
		return doc, ErrInvalidDocument
	}
	textLen := int(binary.BigEndian.Uint32(data))
	off := 4
	compressed := data[off : off+textLen]
	off += textLen

	if len(compressed)%2 != 0 {
		return doc, fmt.Errorf("%w: odd text length", ErrInvalidDocument)
	}
	units := make([]uint16, len(compressed)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(compressed[i*2:])
	}
	text, ok := lzDecompress(units)
	if !ok {
		return doc, fmt.Errorf("%w: %v", ErrInvalidDocument, ErrLZCorrupt)
	}
	doc.Text = string(utf16.Decode(text))

	count := int(binary.BigEndian.Uint16(data[off:]))
	off += 2
	for i := 0; i < count; i++ {
		if off+2 > len(data) {
			return doc, fmt.Errorf("%w: truncated file %d", ErrInvalidDocument, i)
		}
		nameLen := int(binary.BigEndian.Uint16(data[off:]))
		off += 2
		if off+nameLen+4 > len(data) {
			return doc, fmt.Errorf("%w: truncated file %d", ErrInvalidDocument, i)
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		dataLen := int(binary.BigEndian.Uint32(data[off:]))
		off += 4
		if dataLen < 0 || off+dataLen > len(data) {
			return doc, fmt.Errorf("%w: truncated file %d", ErrInvalidDocument, i)
		}
		doc.Files = append(doc.Files, File{Name: name, Data: append([]byte(nil), data[off:off+dataLen]...)})
		off += dataLen
	}
	return doc, nil
}
