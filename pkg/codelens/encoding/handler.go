// Package encoding detects binary content and decodes text to UTF-8.
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	sniffLen = 512
	checkLen = 1024
	// nullThreshold is the share of NUL bytes above which content is binary.
	nullThreshold = 0.15
)

// UTF8BOM is the byte order mark some editors put at the start of UTF-8 files.
const UTF8BOM = "\xef\xbb\xbf"

var textMIMETypes = map[string]bool{
	"application/json":        true,
	"application/xml":         true,
	"application/javascript":  true,
	"application/ecmascript":  true,
	"application/x-sh":        true,
	"application/sql":         true,
	"application/typescript":  true,
	"application/x-httpd-php": true,
	"image/svg+xml":           true,
	// octet-stream is inconclusive; the NUL check decides.
	"application/octet-stream": true,
}

var textMIMESuffixes = []string{"+xml", "+json"}

var utf16BOMs = [][]byte{{0xFF, 0xFE}, {0xFE, 0xFF}}

// Decoded is text converted to UTF-8.
type Decoded struct {
	Text string
	// Encoding is the IANA name of the source encoding.
	Encoding string
	// Certain is set when the encoding was valid UTF-8, announced by a byte
	// order mark or forced by the configured default.
	Certain bool
	// BOM is set when a UTF-8 byte order mark was removed from Text.
	BOM bool
}

// Handler detects binary content and decodes text.
type Handler interface {
	IsBinary(content []byte) bool
	Decode(content []byte) (Decoded, error)
}

// CharsetHandler implements Handler with golang.org/x/net/html/charset.
type CharsetHandler struct {
	defaultEncoding string
}

// NewCharsetHandler creates a CharsetHandler. defaultEncoding, when it names a
// known encoding, is used for content that is neither valid UTF-8 nor marked
// by a byte order mark.
func NewCharsetHandler(defaultEncoding string) *CharsetHandler {
	return &CharsetHandler{defaultEncoding: defaultEncoding}
}

// Decode converts content to UTF-8. Invalid sequences become U+FFFD.
func (h *CharsetHandler) Decode(content []byte) (Decoded, error) {
	if utf8.Valid(content) {
		text := string(content)
		bom := strings.HasPrefix(text, UTF8BOM)
		return Decoded{Text: strings.TrimPrefix(text, UTF8BOM), Encoding: "utf-8", Certain: true, BOM: bom}, nil
	}

	enc, name, certain := charset.DetermineEncoding(content, "")
	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc, name, certain = fallback, fallbackName, true
		}
	}
	if name == "" {
		name = "unknown"
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return Decoded{Encoding: name}, fmt.Errorf("decode from %q: %w", name, err)
	}
	if !utf8.Valid(out) {
		out = bytes.ToValidUTF8(out, []byte("�"))
	}
	return Decoded{Text: strings.TrimPrefix(string(out), "\ufeff"), Encoding: name, Certain: certain}, nil
}

// IsBinary reports content that is not text: a sniffed MIME type that is not
// text-like, or more than 15% NUL bytes in the first KiB. UTF-16 content with
// a byte order mark is text.
func (h *CharsetHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	for _, bom := range utf16BOMs {
		if bytes.HasPrefix(content, bom) {
			return false
		}
	}

	if !isTextMIME(http.DetectContentType(content[:min(len(content), sniffLen)])) {
		return true
	}
	head := content[:min(len(content), checkLen)]
	return float64(bytes.Count(head, []byte{0}))/float64(len(head)) > nullThreshold
}

func isTextMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mimeType, "text/") || textMIMETypes[mimeType] {
		return true
	}
	for _, suffix := range textMIMESuffixes {
		if strings.HasSuffix(mimeType, suffix) {
			return true
		}
	}
	return false
}
