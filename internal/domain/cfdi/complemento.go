package cfdi

import "strings"

// Namespace declaración xmlns:Prefix="URI" que un complemento aporta al nodo raíz.
type Namespace struct {
	Prefix string
	URI    string
}

// Fragment es el resultado de renderizar un complemento: sus namespaces, los pares
// "namespace xsd" para xsi:schemaLocation y el XML que va dentro de cfdi:Complemento.
type Fragment struct {
	Namespaces     []Namespace
	SchemaLocation []string
	XML            string
}

// Complemento es cualquier sub-documento registrado en el comprobante. El ensamblador
// solo conoce esta interfaz: cada variante declara su namespace y su schemaLocation.
type Complemento interface {
	Render() Fragment
}

// fragment arma un Fragment de un solo namespace.
func fragment(prefix, uri, xsd, xml string) Fragment {
	return Fragment{
		Namespaces:     []Namespace{{Prefix: prefix, URI: uri}},
		SchemaLocation: []string{uri + " " + xsd},
		XML:            xml,
	}
}

// element renderiza <tag attrs/> o <tag attrs>inner</tag>. attrs llega tal cual lo
// concatena Attr (cada atributo con su espacio final); sin atributos no hay espacio
// tras el nombre.
func element(tag, attrs, inner string) string {
	var b strings.Builder
	b.Grow(len(tag)*2 + len(attrs) + len(inner) + 8)
	b.WriteByte('<')
	b.WriteString(tag)
	if attrs != "" {
		b.WriteByte(' ')
		b.WriteString(attrs)
	}
	if inner == "" {
		b.WriteString("/>")
		return b.String()
	}
	b.WriteByte('>')
	b.WriteString(inner)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
	return b.String()
}

// attrs concatena pares nombre/valor con Attr; los vacíos se omiten.
func attrs(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(Attr(pairs[i], pairs[i+1]))
	}
	return b.String()
}
