package dou

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

const (
	fieldSeparator = " | "
	resumoMarker   = "resolve: | "
)

// pageKeys maps the class keys found inside #materia to field names.
var pageKeys = []struct{ class, field string }{
	{"secao-dou", "secao"},
	{"orgao-dou-data", "orgao"},
	{"assina", "assina"},
	{"identifica", "identifica"},
	{"cargo", "cargo"},
	{"secao-dou-data", "pagina"},
	{"edicao-dou-data", "edicao"},
	{"dou-em", "italico"},
	{"ementa", "ementa"},
	{"dou-strong", "strong"},
	{"titulo", "ato_orgao"},
	{"subtitulo", "subtitulo"},
	{"dou-paragraph", "paragraph"},
	{"publicado-dou-data", "pub_date"},
	{"assinaPr", "assinaPr"},
}

var alphanumeric = regexp.MustCompile(`[a-zA-Z0-9]`)

// Structurer extracts the fields of a DOU entry page.
type Structurer struct{}

var (
	_ ports.Structurer    = (*Structurer)(nil)
	_ ports.RawStructurer = (*Structurer)(nil)
)

func NewStructurer() *Structurer {
	return &Structurer{}
}

// Structure parses raw HTML; pages without #materia fail with ErrStructuring.
func (s *Structurer) Structure(raw []byte, url string) (domain.StructuredEntry, error) {
	entry, _, err := s.StructureRaw(raw, url)
	return entry, err
}

// StructureRaw is Structure plus every class-keyed text found in #materia.
func (s *Structurer) StructureRaw(raw []byte, url string) (domain.StructuredEntry, map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse %s: %v", domain.ErrStructuring, url, err)
	}

	materia := doc.Find("#materia").First()
	if materia.Length() == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no #materia block", domain.ErrStructuring, url)
	}

	fields := classTexts(materia.Nodes[0])
	entry := make(domain.StructuredEntry, len(pageKeys)+6)
	for _, k := range pageKeys {
		if v, ok := fields[k.class]; ok {
			entry[k.field] = v
		}
	}

	if secao, ok := entry["secao"]; ok {
		entry["secao"] = sectionNumber(secao)
	}
	if pr, ok := entry["assinaPr"]; ok {
		if assina, ok := entry["assina"]; ok {
			entry["assina"] = pr + fieldSeparator + assina
		} else {
			entry["assina"] = pr
		}
	}

	var parts []string
	for _, field := range []string{"ato_orgao", "subtitulo", "ementa", "strong", "italico", "paragraph"} {
		if v, ok := entry[field]; ok {
			parts = append(parts, v)
		}
	}
	entry["alltext"] = strings.Join(parts, fieldSeparator)

	if paragraph, ok := entry["paragraph"]; ok {
		entry["resumo"] = Resumo(paragraph)
	}
	entry["fulltext"] = strings.Join(strings.Fields(materia.Text()), " ")
	if href, ok := doc.Find(".botao-materia a[href]").First().Attr("href"); ok {
		entry["url_certificado"] = href
	}
	entry["url"] = url

	return entry, fields, nil
}

// PublicationDay parses pub_date (DD/MM/YYYY) into a day in loc.
func PublicationDay(entry domain.StructuredEntry, loc *time.Location) (time.Time, bool) {
	value, ok := entry.Field("pub_date")
	if !ok {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("02/01/2006", value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// classTexts walks the element tree keyed by the classes of each element,
// then keeps only the innermost class key of every path.
func classTexts(root *html.Node) map[string]string {
	var (
		paths []string
		byKey = map[string][]string{}
	)

	var walk func(n *html.Node, parent string)
	walk = func(n *html.Node, parent string) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			key := strings.Join(strings.Fields(attr(c, "class")), "-")
			if parent != "" {
				key = parent + "_" + key
			}
			if text := ownText(c); text != "" {
				if _, seen := byKey[key]; !seen {
					paths = append(paths, key)
				}
				byKey[key] = append(byKey[key], text)
			}
			walk(c, key)
		}
	}
	walk(root, "")

	result := make(map[string]string)
	for _, path := range paths {
		leaf := path[strings.LastIndex(path, "_")+1:]
		if leaf == "" {
			continue
		}
		value := strings.Join(byKey[path], fieldSeparator)
		if existing, ok := result[leaf]; ok {
			value = existing + fieldSeparator + value
		}
		result[leaf] = value
	}

	for k, v := range result {
		if !alphanumeric.MatchString(v) {
			delete(result, k)
		}
	}
	return result
}

// ownText joins the text nodes directly under n.
func ownText(n *html.Node) string {
	var texts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if t := strings.TrimSpace(c.Data); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, fieldSeparator)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// sectionNumber turns "Seção: 1 | Página: 3" into "1".
func sectionNumber(value string) string {
	head := strings.SplitN(value, "|", 2)[0]
	if i := strings.Index(head, ":"); i >= 0 {
		head = head[i+1:]
	}
	return strings.TrimSpace(head)
}

// Resumo clips the first paragraphs (or those after "resolve:") into an excerpt.
func Resumo(paragraph string) string {
	if paragraph == "" {
		return ""
	}
	if i := strings.Index(paragraph, resumoMarker); i >= 0 {
		paragraph = paragraph[i+len(resumoMarker):]
	}

	var resumo string
	parts := strings.Split(paragraph, "|")
	if len(parts) > 1 {
		resumo = clip(parts[0], 200) + "... | ..." + clip(parts[1], 200)
	} else {
		resumo = clip(parts[0], 300)
	}

	if !strings.HasSuffix(resumo, ".") && !strings.HasSuffix(resumo, ". ") {
		resumo += "..."
	}
	return resumo
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
