package cfdi

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
)

// CadenaOriginal genera la cadena original del comprobante (equivalente a la hoja
// XSLT del SAT): valores de atributos en orden de documento, separados por '|'
// y delimitados por "||". No incluye Sello, Certificado, declaraciones de
// namespace, schemaLocation, la Addenda ni el TimbreFiscalDigital.
func CadenaOriginal(xmlText string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlText); err != nil {
		return "", fmt.Errorf("%w: XML mal formado: %v", domain.ErrInvalidInput, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Comprobante" {
		return "", fmt.Errorf("%w: el nodo raíz no es cfdi:Comprobante", domain.ErrInvalidInput)
	}
	var values []string
	walk(root, root, &values)
	return "||" + strings.Join(values, "|") + "||", nil
}

func walk(el, root *etree.Element, out *[]string) {
	if el.Tag == "Addenda" || el.Tag == "TimbreFiscalDigital" {
		return
	}
	if el.Tag == "Impuestos" && el.Parent() == root {
		walkTaxSummary(el, out)
		return
	}
	for _, a := range el.Attr {
		if skipAttr(el, root, a) {
			continue
		}
		appendValue(out, a.Value)
	}
	for _, child := range el.ChildElements() {
		walk(child, root, out)
	}
}

// walkTaxSummary respeta el orden de la hoja XSLT para el resumen del comprobante:
// retenciones, total retenido, traslados, total trasladado.
func walkTaxSummary(el *etree.Element, out *[]string) {
	for _, group := range el.SelectElements("Retenciones") {
		for _, r := range group.ChildElements() {
			appendAttrs(r, out)
		}
	}
	if a := el.SelectAttr("TotalImpuestosRetenidos"); a != nil {
		appendValue(out, a.Value)
	}
	for _, group := range el.SelectElements("Traslados") {
		for _, t := range group.ChildElements() {
			appendAttrs(t, out)
		}
	}
	if a := el.SelectAttr("TotalImpuestosTrasladados"); a != nil {
		appendValue(out, a.Value)
	}
}

func appendAttrs(el *etree.Element, out *[]string) {
	for _, a := range el.Attr {
		if a.Space == "xmlns" || a.Key == "xmlns" {
			continue
		}
		appendValue(out, a.Value)
	}
}

func appendValue(out *[]string, v string) {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return
	}
	*out = append(*out, v)
}

func skipAttr(el, root *etree.Element, a etree.Attr) bool {
	switch {
	case a.Space == "xmlns" || a.Key == "xmlns":
		return true
	case a.Key == "schemaLocation":
		return true
	case el == root && (a.Key == "Sello" || a.Key == "Certificado"):
		return true
	}
	return false
}

// DigestFor devuelve el algoritmo de digestión del sello según la versión:
// SHA-1 antes de la 3.3, SHA-256 desde la 3.3.
func DigestFor(version string) crypto.Hash {
	v, err := strconv.ParseFloat(strings.TrimSpace(version), 64)
	if err == nil && v < 3.3 {
		return crypto.SHA1
	}
	return crypto.SHA256
}

// CanonicalDigest calcula el SHA-256 (hex) de la forma canónica C14N del XML timbrado.
// Se persiste junto al XML para verificar integridad.
func CanonicalDigest(xmlText string) (string, error) {
	body := strings.TrimSpace(xmlText)
	if strings.HasPrefix(body, "<?xml") {
		if i := strings.Index(body, "?>"); i >= 0 {
			body = body[i+2:]
		}
	}
	dec := xml.NewDecoder(bytes.NewReader([]byte(body)))
	dec.Entity = map[string]string{}
	canon, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("cfdi: canonicalizar XML: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
