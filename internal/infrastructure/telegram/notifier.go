package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// Telegram rejects texts longer than 4096 characters.
	maxMessageRunes = 4000
)

// Notifier sends matched entries to a Telegram chat via bot API.
type Notifier struct {
	botToken    string
	defaultChat string
	apiBase     string
	client      *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the bot token and the chat used when a rule set has no channel.
func NewNotifier(botToken, defaultChat string) *Notifier {
	return &Notifier{
		botToken:    botToken,
		defaultChat: defaultChat,
		apiBase:     defaultAPIBase,
		client:      &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimSuffix(base, "/")
	return n
}

// Deliver posts the entries as one or more Markdown messages to meta.Channel.
func (n *Notifier) Deliver(ctx context.Context, meta domain.RuleSetMeta, entries []domain.StructuredEntry) error {
	if len(entries) == 0 {
		return nil
	}

	chat := meta.Channel
	if chat == "" {
		chat = n.defaultChat
	}
	if n.botToken == "" || chat == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	for _, text := range Messages(meta, entries) {
		if err := n.send(ctx, chat, text); err != nil {
			return fmt.Errorf("rule set %s: %w", meta.Name, err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, chat, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chat)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// Messages renders a delivery batch, splitting it when a single message would be too long.
func Messages(meta domain.RuleSetMeta, entries []domain.StructuredEntry) []string {
	header := "*" + escape(headline(meta)) + "*\n\n"

	var (
		messages []string
		current  strings.Builder
	)
	current.WriteString(header)
	for _, entry := range entries {
		block := formatEntry(entry)
		if current.Len() > len(header) && len([]rune(current.String()))+len([]rune(block)) > maxMessageRunes {
			messages = append(messages, current.String())
			current.Reset()
			current.WriteString(header)
		}
		current.WriteString(block)
	}
	return append(messages, current.String())
}

func headline(meta domain.RuleSetMeta) string {
	if meta.Description != "" {
		return meta.Description
	}
	return meta.Name
}

func formatEntry(e domain.StructuredEntry) string {
	var b strings.Builder

	title, ok := e.Field("identifica")
	if !ok {
		title, _ = e.Field("ato_orgao")
	}
	fmt.Fprintf(&b, "*%s*\n", escape(title))

	if orgao, ok := e.Field("orgao"); ok {
		fmt.Fprintf(&b, "*Órgão:* %s\n", escape(orgao))
	}
	if ementa, ok := e.Field("ementa"); ok {
		fmt.Fprintf(&b, "*Ementa:* %s\n", escape(ementa))
	} else if resumo, ok := e.Field("resumo"); ok {
		fmt.Fprintf(&b, "*Excerto:* %s\n", escape(resumo))
	}
	if assina, ok := e.Field("assina"); ok {
		cargo, _ := e.Field("cargo")
		fmt.Fprintf(&b, "*Assina:* %s (%s)\n", escape(assina), escape(cargo))
	}

	pubDate, _ := e.Field("pub_date")
	edicao, _ := e.Field("edicao")
	secao, _ := e.Field("secao")
	pagina, _ := e.Field("pagina")
	fmt.Fprintf(&b, "Publicado em: %s | Edição: %s | Seção: %s | Página: %s\n",
		escape(pubDate), escape(edicao), escape(secao), escape(pagina))

	link, _ := e.Field("url")
	fmt.Fprintf(&b, "[Artigo completo](%s)", link)
	if cert, ok := e.Field("url_certificado"); ok {
		fmt.Fprintf(&b, " | [Versão certificada](%s)", cert)
	}
	b.WriteString("\n\n")
	return b.String()
}

var markdownEscaper = strings.NewReplacer("*", "", "_", "\\_", "`", "", "[", "(", "]", ")")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
