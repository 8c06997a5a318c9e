package dou

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

const (
	DefaultListingURL    = "http://www.in.gov.br/leiturajornal"
	DefaultArticlePrefix = "http://www.in.gov.br/web/dou/-/"

	listingDateLayout = "02-01-2006"
	keyDateLayout     = "2006-01-02"
)

// ListingOptions configures where listings and entries live.
type ListingOptions struct {
	ListingURL    string
	ArticlePrefix string
	// HivePartitioning prefixes storage keys with part_data_pub=/part_secao= folders.
	HivePartitioning bool
}

// Listing reads the daily table of contents of one gazette section.
type Listing struct {
	fetcher ports.Fetcher
	opts    ListingOptions
	logger  *slog.Logger
}

var _ ports.ListingSource = (*Listing)(nil)

type listingParams struct {
	JSONArray []struct {
		URLTitle string `json:"urlTitle"`
	} `json:"jsonArray"`
}

// NewListing wires a fetcher; empty URLs fall back to the public site.
func NewListing(fetcher ports.Fetcher, opts ListingOptions, log *slog.Logger) *Listing {
	if opts.ListingURL == "" {
		opts.ListingURL = DefaultListingURL
	}
	if opts.ArticlePrefix == "" {
		opts.ArticlePrefix = DefaultArticlePrefix
	}
	return &Listing{fetcher: fetcher, opts: opts, logger: log}
}

// List returns the entries published on day in section. A page without the
// #params block means nothing was published yet.
func (l *Listing) List(ctx context.Context, day time.Time, section domain.Section) ([]domain.CandidateEntry, error) {
	pageURL, err := l.pageURL(day, section)
	if err != nil {
		return nil, err
	}

	result, err := l.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("list section %s on %s: %w", section, day.Format(keyDateLayout), err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Content))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	script := doc.Find("#params").First()
	if script.Length() == 0 {
		l.debug("listing has no params block", "url", pageURL)
		return nil, nil
	}

	var params listingParams
	if err := json.Unmarshal([]byte(strings.TrimSpace(script.Text())), &params); err != nil {
		return nil, fmt.Errorf("decode listing params: %w", err)
	}

	entries := make([]domain.CandidateEntry, 0, len(params.JSONArray))
	for _, item := range params.JSONArray {
		if item.URLTitle == "" {
			continue
		}
		entries = append(entries, domain.CandidateEntry{
			URL:             l.opts.ArticlePrefix + item.URLTitle,
			StorageKey:      StorageKey(day, section, item.URLTitle, l.opts.HivePartitioning),
			Section:         section,
			PublicationDate: day,
		})
	}

	l.debug("listing parsed", "section", section, "day", day.Format(keyDateLayout), "entries", len(entries))
	return entries, nil
}

func (l *Listing) pageURL(day time.Time, section domain.Section) (string, error) {
	parsed, err := url.Parse(l.opts.ListingURL)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", l.opts.ListingURL, err)
	}

	query := parsed.Query()
	query.Set("data", day.Format(listingDateLayout))
	query.Set("secao", "do"+string(section))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// StorageKey builds the file name an entry is saved under.
func StorageKey(day time.Time, section domain.Section, urlTitle string, hive bool) string {
	date := day.Format(keyDateLayout)
	prefix := ""
	if hive {
		prefix = "part_data_pub=" + date + "/part_secao=" + string(section) + "/"
	}
	return prefix + date + "_s" + string(section) + "_" + fixTitle(urlTitle) + ".json"
}

func fixTitle(urlTitle string) string {
	fixed := strings.ReplaceAll(urlTitle, "//", "/")
	return strings.ReplaceAll(fixed, "*", "xXx")
}

func (l *Listing) debug(msg string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
