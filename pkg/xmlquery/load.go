package xmlquery

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var encodingDecl = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([^"']+)["']`)

// Load lee un documento completo y lo normaliza a UTF-8 antes de construir el nodo raíz.
// Los CFDI reimportados de sistemas contables antiguos suelen venir en ISO-8859-1 o Windows-1252.
func Load(r io.Reader) (*Node, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("xmlquery: leer documento: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return New(text), nil
}

func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	m := encodingDecl.FindSubmatch(raw)
	if m == nil {
		return string(raw), nil
	}
	var dec *charmap.Charmap
	switch strings.ToLower(string(m[1])) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		dec = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		dec = charmap.Windows1252
	default:
		return string(raw), nil
	}
	out, _, err := transform.Bytes(dec.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("xmlquery: decodificar %s: %w", m[1], err)
	}
	return string(out), nil
}
