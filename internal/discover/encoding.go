package discover

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Doctest sources are mostly UTF-8, but prose files from older projects
// show up as UTF-16 (with BOM) or latin-1. Detection is BOM first, then
// UTF-8 validation, then a latin-1 fallback that cannot fail.

type Encoding string

const (
	EncUTF8    Encoding = "utf-8"
	EncUTF16LE Encoding = "utf-16le"
	EncUTF16BE Encoding = "utf-16be"
	EncLatin1  Encoding = "iso-8859-1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func DetectEncoding(data []byte) (enc Encoding, hasBOM bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncUTF8, true
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncUTF16LE, true
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncUTF16BE, true
	}

	if utf8.Valid(data) {
		return EncUTF8, false
	}

	if enc, ok := sniffUTF16(data); ok {
		return enc, false
	}

	return EncLatin1, false
}

// sniffUTF16 looks for the null-byte pattern ASCII-heavy UTF-16 text
// produces on one side of each code unit.
func sniffUTF16(data []byte) (Encoding, bool) {
	if len(data) < 2 || len(data)%2 != 0 {
		return "", false
	}

	evenNulls, oddNulls := 0, 0
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == 0 {
			evenNulls++
		}
		if data[i+1] == 0 {
			oddNulls++
		}
	}

	units := len(data) / 2
	if oddNulls*4 > units*3 {
		return EncUTF16LE, true
	}
	if evenNulls*4 > units*3 {
		return EncUTF16BE, true
	}
	return "", false
}

func decoderFor(enc Encoding) *encoding.Decoder {
	switch enc {
	case EncUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case EncLatin1:
		return charmap.ISO8859_1.NewDecoder()
	default:
		return nil
	}
}

// Decode converts raw bytes to UTF-8 text, replacing anything that still
// will not decode rather than failing.
func Decode(data []byte, enc Encoding, hasBOM bool) string {
	if enc == EncUTF8 {
		if hasBOM {
			data = data[len(bomUTF8):]
		}
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}

	dec := decoderFor(enc)
	if dec == nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}

	reader := transform.NewReader(bytes.NewReader(data), dec)
	result, err := io.ReadAll(reader)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return string(bytes.ToValidUTF8(result, []byte("�")))
}

// ReadFileUTF8 reads path and returns its content as UTF-8 text along
// with the encoding it was decoded from.
func ReadFileUTF8(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	enc, hasBOM := DetectEncoding(data)
	return Decode(data, enc, hasBOM), enc, nil
}
