package cfdi

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

var unescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&#39;", "'",
	"&amp;", "&",
)

// Escape normaliza un valor para un atributo CFDI: elimina '|' (separador de la cadena
// original), colapsa espacios y saltos de línea en un solo espacio y codifica entidades.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "|", "")
	s = strings.Join(strings.Fields(s), " ")
	return escaper.Replace(s)
}

// Unescape revierte las entidades de Escape. La pérdida de '|' y de espacios es permanente.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Attr emite `name="valor" ` solo si el valor no está vacío. Es el único punto que
// decide si un atributo opcional aparece en el XML.
func Attr(name, value string) string {
	if value == "" {
		return ""
	}
	return name + `="` + Escape(value) + `" `
}

// truncateRunes corta s a max caracteres (no bytes).
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
