package stego

// TextMarker prefixes plain text hidden without encryption.
const TextMarker = 103

// PayloadKind says how a revealed payload should be handled.
type PayloadKind int

const (
	// PayloadText is UTF-8 text with no marker.
	PayloadText PayloadKind = iota
	// PayloadMarkedText is UTF-8 text after a TextMarker byte.
	PayloadMarkedText
	// PayloadEnvelope is a binary PassLok message to be decrypted.
	PayloadEnvelope
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadMarkedText:
		return "marked-text"
	case PayloadEnvelope:
		return "envelope"
	default:
		return "text"
	}
}

// MarkText prefixes text with TextMarker.
func MarkText(text string) []byte {
	return append([]byte{TextMarker}, text...)
}

// Classify inspects the first byte of a revealed payload and returns its
// kind with the bytes to hand on: the whole envelope, or the text with any
// marker removed.
func Classify(data []byte) (PayloadKind, []byte) {
	if len(data) == 0 {
		return PayloadText, data
	}
	switch data[0] {
	case 0, 56, 72, 128:
		return PayloadEnvelope, data
	case TextMarker:
		return PayloadMarkedText, data[1:]
	}
	return PayloadText, data
}

// EstimateCapacity is a rough count of the bytes a width x height carrier
// holds: three bits per pixel for PNG and a tenth of a byte per pixel for
// JPEG, less the end marker.
func EstimateCapacity(width, height int, format Format) int {
	pixels := width * height
	var n int
	if format == FormatJPEG {
		n = pixels / 10
	} else {
		n = pixels * 3 / 8
	}
	n -= len(EOF)
	if n < 0 {
		return 0
	}
	return n
}
