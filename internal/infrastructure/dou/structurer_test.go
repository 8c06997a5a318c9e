package dou

import (
	"errors"
	"testing"
	"time"

	"GazetteScanner/internal/domain"
)

const entryPage = `<html><body>
<div id="materia" class="materia">
  <div class="detalhes-dou">
    <p class="publicado-dou-data">13/05/2024</p>
    <p class="edicao-dou-data">90</p>
    <p class="secao-dou">Seção: 1</p>
    <p class="secao-dou-data">12</p>
    <p class="orgao-dou-data">Ministério da Saúde/Gabinete do Ministro</p>
  </div>
  <div class="texto-dou">
    <p class="identifica">PORTARIA Nº 1, DE 10 DE MAIO DE 2024</p>
    <p class="ementa">Dispõe sobre vacinas.</p>
    <p class="dou-paragraph">O MINISTRO DE ESTADO DA SAÚDE resolve:</p>
    <p class="dou-paragraph">Art. 1º Fica aprovado o calendário.</p>
    <p class="assinaPr">PRESIDENTE</p>
    <p class="assina">FULANO DE TAL</p>
    <p class="cargo">Ministro</p>
  </div>
</div>
<div class="botao-materia"><a href="http://cert/1">Versão certificada</a></div>
</body></html>`

func TestStructure(t *testing.T) {
	t.Parallel()

	entry, err := NewStructurer().Structure([]byte(entryPage), "http://dou/-/portaria-1")
	if err != nil {
		t.Fatalf("structure: %v", err)
	}

	expect := map[string]string{
		"secao":           "1",
		"pagina":          "12",
		"edicao":          "90",
		"pub_date":        "13/05/2024",
		"orgao":           "Ministério da Saúde/Gabinete do Ministro",
		"identifica":      "PORTARIA Nº 1, DE 10 DE MAIO DE 2024",
		"ementa":          "Dispõe sobre vacinas.",
		"paragraph":       "O MINISTRO DE ESTADO DA SAÚDE resolve: | Art. 1º Fica aprovado o calendário.",
		"assina":          "PRESIDENTE | FULANO DE TAL",
		"cargo":           "Ministro",
		"alltext":         "Dispõe sobre vacinas. | O MINISTRO DE ESTADO DA SAÚDE resolve: | Art. 1º Fica aprovado o calendário.",
		"resumo":          "Art. 1º Fica aprovado o calendário.",
		"url":             "http://dou/-/portaria-1",
		"url_certificado": "http://cert/1",
	}
	for field, want := range expect {
		if got := entry[field]; got != want {
			t.Errorf("%s: expected %q, got %q", field, want, got)
		}
	}
	if _, ok := entry.Field("fulltext"); !ok {
		t.Fatalf("expected fulltext")
	}

	day, ok := PublicationDay(entry, time.UTC)
	if !ok || !day.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected publication day %v", day)
	}
}

func TestStructureRawKeepsPageClasses(t *testing.T) {
	t.Parallel()

	entry, raw, err := NewStructurer().StructureRaw([]byte(entryPage), "http://dou/-/portaria-1")
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if entry["orgao"] != "Ministério da Saúde/Gabinete do Ministro" {
		t.Fatalf("unexpected orgao %q", entry["orgao"])
	}
	if got := raw["orgao-dou-data"]; got != "Ministério da Saúde/Gabinete do Ministro" {
		t.Fatalf("expected raw orgao-dou-data, got %q", got)
	}
	if got := raw["assinaPr"]; got != "PRESIDENTE" {
		t.Fatalf("expected raw assinaPr, got %q", got)
	}
}

func TestStructureWithoutMateria(t *testing.T) {
	t.Parallel()

	_, err := NewStructurer().Structure([]byte("<html><body><p>404</p></body></html>"), "http://x")
	if !errors.Is(err, domain.ErrStructuring) {
		t.Fatalf("expected ErrStructuring, got %v", err)
	}
}

func TestResumo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"Único parágrafo.", "Único parágrafo."},
		{"primeiro | segundo", "primeiro ... | ... segundo..."},
		{"considerando, resolve: | Art. 1º Nomear.", "Art. 1º Nomear."},
	}
	for _, c := range cases {
		if got := Resumo(c.in); got != c.want {
			t.Errorf("Resumo(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
