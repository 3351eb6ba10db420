// Package xmlquery ofrece lectura tolerante de XML fiscal (CFDI, respuestas de PAC,
// facturas reimportadas) sin un DOM completo.
//
// No es un parser XML conforme: trabaja con expresiones regulares sobre el texto
// crudo porque el XML que circula en el ecosistema fiscal llega con prefijos
// inconsistentes o declaraciones de namespace incompletas.
//
// Limitación conocida: cuando un nombre de elemento aparece varias veces (por
// ejemplo cfdi:Impuestos dentro de cada Concepto y a nivel comprobante), Find
// elige la primera ocurrencia cuyo tag inmediatamente anterior es un tag de
// cierre. Es una heurística, no una consulta XML general.
package xmlquery

import (
	"regexp"
	"strings"
	"sync"
)

// Node es una vista sobre un fragmento de XML crudo. Las búsquedas devuelven
// nodos nuevos; el nodo original nunca se modifica salvo su caché de hijos.
type Node struct {
	xml    string
	prefix string

	mu    sync.Mutex
	found map[string]*Node
	lists map[string][]*Node
}

// New crea el nodo raíz sobre el documento completo.
func New(xml string) *Node {
	return &Node{xml: xml}
}

// Empty indica si el nodo no apunta a ningún elemento.
func (n *Node) Empty() bool {
	return n == nil || strings.TrimSpace(n.xml) == ""
}

// String devuelve el XML crudo del nodo (tag de apertura, contenido y cierre).
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	return n.xml
}

// Prefix devuelve el prefijo con el que se localizó el nodo (vacío = cualquiera).
func (n *Node) Prefix() string {
	if n == nil {
		return ""
	}
	return n.prefix
}

// Find localiza el elemento name (con prefijo opcional; "" acepta cualquier prefijo).
// Devuelve un nodo vacío si no existe.
func (n *Node) Find(name, prefix string) *Node {
	if n.Empty() {
		return &Node{}
	}
	key := prefix + ":" + name
	n.mu.Lock()
	if cached, ok := n.found[key]; ok {
		n.mu.Unlock()
		return cached
	}
	n.mu.Unlock()

	spans := n.spans(name, prefix)
	var out *Node
	switch len(spans) {
	case 0:
		out = &Node{}
	case 1:
		out = &Node{xml: n.xml[spans[0][0]:spans[0][1]], prefix: prefix}
	default:
		chosen := spans[0]
		for _, sp := range spans {
			if precededByClosingTag(n.xml[:sp[0]]) {
				chosen = sp
				break
			}
		}
		out = &Node{xml: n.xml[chosen[0]:chosen[1]], prefix: prefix}
	}

	n.mu.Lock()
	if n.found == nil {
		n.found = make(map[string]*Node)
	}
	n.found[key] = out
	n.mu.Unlock()
	return out
}

// FindList devuelve todas las ocurrencias de name en orden de aparición.
func (n *Node) FindList(name, prefix string) []*Node {
	if n.Empty() {
		return nil
	}
	key := prefix + ":" + name
	n.mu.Lock()
	if cached, ok := n.lists[key]; ok {
		n.mu.Unlock()
		return cached
	}
	n.mu.Unlock()

	spans := n.spans(name, prefix)
	out := make([]*Node, 0, len(spans))
	for _, sp := range spans {
		out = append(out, &Node{xml: n.xml[sp[0]:sp[1]], prefix: prefix})
	}

	n.mu.Lock()
	if n.lists == nil {
		n.lists = make(map[string][]*Node)
	}
	n.lists[key] = out
	n.mu.Unlock()
	return out
}

// Get extrae el valor del atributo attr del tag de apertura del nodo, sin distinguir
// mayúsculas, y lo des-escapa. Si no existe o está vacío devuelve def.
func (n *Node) Get(attr, def string) string {
	if n.Empty() {
		return def
	}
	tag := n.startTag()
	if tag == "" {
		return def
	}
	m := attrPattern(attr).FindStringSubmatch(tag)
	if m == nil {
		return def
	}
	v := m[1]
	if v == "" {
		v = m[2]
	}
	if v == "" {
		return def
	}
	return unescape(v)
}

// Text devuelve el contenido textual del nodo (entre apertura y cierre), des-escapado.
func (n *Node) Text() string {
	if n.Empty() {
		return ""
	}
	start := n.startTagBounds()
	if start[1] <= 0 || strings.HasSuffix(n.xml[start[0]:start[1]], "/>") {
		return ""
	}
	body := n.xml[start[1]:]
	if i := strings.LastIndex(body, "</"); i >= 0 {
		body = body[:i]
	}
	return unescape(strings.TrimSpace(body))
}

// startTag devuelve el primer tag de apertura del fragmento (ignora <?xml?> y comentarios).
func (n *Node) startTag() string {
	b := n.startTagBounds()
	if b[1] <= b[0] {
		return ""
	}
	return n.xml[b[0]:b[1]]
}

func (n *Node) startTagBounds() [2]int {
	s := n.xml
	i := 0
	for {
		j := strings.IndexByte(s[i:], '<')
		if j < 0 {
			return [2]int{0, 0}
		}
		i += j
		if i+1 < len(s) && (s[i+1] == '?' || s[i+1] == '!' || s[i+1] == '/') {
			k := strings.IndexByte(s[i:], '>')
			if k < 0 {
				return [2]int{0, 0}
			}
			i += k + 1
			continue
		}
		end := tagEnd(s, i)
		if end < 0 {
			return [2]int{0, 0}
		}
		return [2]int{i, end}
	}
}

// spans devuelve [inicio, fin) de cada elemento name dentro del nodo.
func (n *Node) spans(name, prefix string) [][2]int {
	open := openPattern(name, prefix)
	locs := open.FindAllStringIndex(n.xml, -1)
	out := make([][2]int, 0, len(locs))
	for _, loc := range locs {
		end := elementEnd(n.xml, loc[0], name, prefix)
		out = append(out, [2]int{loc[0], end})
	}
	return out
}

// elementEnd calcula el fin del elemento que empieza en pos, contando anidamiento
// de elementos homónimos.
func elementEnd(s string, pos int, name, prefix string) int {
	end := tagEnd(s, pos)
	if end < 0 {
		return len(s)
	}
	if strings.HasSuffix(s[pos:end], "/>") {
		return end
	}
	re := anyTagPattern(name, prefix)
	depth := 1
	cursor := end
	for depth > 0 {
		loc := re.FindStringIndex(s[cursor:])
		if loc == nil {
			return len(s)
		}
		start := cursor + loc[0]
		stop := tagEnd(s, start)
		if stop < 0 {
			return len(s)
		}
		tag := s[start:stop]
		switch {
		case strings.HasPrefix(tag, "</"):
			depth--
		case strings.HasSuffix(tag, "/>"):
		default:
			depth++
		}
		cursor = stop
	}
	return cursor
}

// tagEnd devuelve la posición siguiente al '>' que cierra el tag iniciado en pos,
// respetando comillas de atributos.
func tagEnd(s string, pos int) int {
	var quote byte
	for i := pos + 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1
		}
	}
	return -1
}

// precededByClosingTag indica si el último tag antes de la posición es de cierre
// (</x> o autocerrado <x/>).
func precededByClosingTag(before string) bool {
	before = strings.TrimRight(before, " \t\r\n")
	if !strings.HasSuffix(before, ">") {
		return false
	}
	if strings.HasSuffix(before, "/>") {
		return true
	}
	i := strings.LastIndexByte(before, '<')
	return i >= 0 && strings.HasPrefix(before[i:], "</")
}

var patterns sync.Map

func cachedPattern(key, expr string) *regexp.Regexp {
	if re, ok := patterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	patterns.Store(key, re)
	return re
}

func qualified(name, prefix string) string {
	if prefix == "" {
		return `(?:[\w.\-]+:)?` + regexp.QuoteMeta(name)
	}
	return regexp.QuoteMeta(prefix) + `:` + regexp.QuoteMeta(name)
}

func openPattern(name, prefix string) *regexp.Regexp {
	return cachedPattern("o|"+prefix+"|"+name, `<`+qualified(name, prefix)+`[\s/>]`)
}

func anyTagPattern(name, prefix string) *regexp.Regexp {
	return cachedPattern("a|"+prefix+"|"+name, `</?`+qualified(name, prefix)+`[\s/>]`)
}

func attrPattern(attr string) *regexp.Regexp {
	return cachedPattern("t|"+strings.ToLower(attr),
		`(?i)\s(?:[\w.\-]+:)?`+regexp.QuoteMeta(attr)+`\s*=\s*(?:"([^"]*)"|'([^']*)')`)
}

var unescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&#39;", "'",
	"&#34;", `"`,
	"&#xA;", "\n",
	"&#xD;", "\r",
	"&#10;", "\n",
	"&#13;", "\r",
	"&amp;", "&",
)

func unescape(s string) string {
	return unescaper.Replace(s)
}
