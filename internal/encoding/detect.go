package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is how much of the input detection looks at.
const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// legacyCharsets are the single-byte encodings spreadsheet exports show up in.
var legacyCharsets = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-15":  charmap.ISO8859_15,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// NewUTF8Reader returns a reader that yields r's content as UTF-8.
//
// Detection order:
//  1. BOM: a UTF-8 BOM is stripped, UTF-16 LE/BE is decoded
//  2. content that is already valid UTF-8 passes through
//  3. chardet's best guess among legacyCharsets
//  4. Windows-1252, the usual Excel "CSV" encoding
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		return decode(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)), nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		return decode(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)), nil
	case utf8.Valid(buf):
		return br, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		if result.Charset == "UTF-8" {
			return br, nil
		}

		if enc, ok := legacyCharsets[result.Charset]; ok {
			return decode(br, enc), nil
		}
	}

	return decode(br, charmap.Windows1252), nil
}

func decode(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, enc.NewDecoder())
}
