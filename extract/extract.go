// Package extract turns a fetched HTML document into the readable article
// that gets delivered.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

const DefaultTitle = "Article"

var ErrNoContent = errors.New("could not extract content")

type Article struct {
	Title    string
	Author   string
	SiteName string
	Excerpt  string

	// HTML is the cleaned article body: links and formatting kept, media
	// and the leading duplicate <h1> removed.
	HTML string
	// Text is the plain-text rendition of the body.
	Text string
}

// Chars is the extracted text length in characters.
func (a Article) Chars() int { return utf8.RuneCountInString(a.Text) }

type Extractor struct {
	settings Settings
	log      *slog.Logger
}

func New(settings Settings, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{settings: settings.WithDefaults(), log: log}
}

// Extract runs readability over doc. pageURL resolves relative links.
func (e *Extractor) Extract(doc []byte, pageURL string) (Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("extract: invalid page url: %w", err)
	}

	parsed, err := readability.FromReader(bytes.NewReader(doc), u)
	if err != nil {
		return Article{}, fmt.Errorf("extract: %w", err)
	}

	text := strings.TrimSpace(parsed.TextContent)
	if utf8.RuneCountInString(text) < e.settings.MinOutputSize {
		return Article{}, ErrNoContent
	}

	body, err := cleanHTML(parsed.Content)
	if err != nil {
		return Article{}, fmt.Errorf("extract: clean html: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return Article{}, ErrNoContent
	}

	art := Article{
		Title:    strings.TrimSpace(parsed.Title),
		Author:   cleanByline(parsed.Byline),
		SiteName: strings.TrimSpace(parsed.SiteName),
		Excerpt:  strings.TrimSpace(parsed.Excerpt),
		HTML:     body,
		Text:     text,
	}
	if art.Title == "" {
		art.Title = DefaultTitle
	}
	if n := art.Chars(); n < e.settings.MinExtractedSize {
		e.log.Warn("extraction_short", "extracted_chars", n, "min_extracted_size", e.settings.MinExtractedSize)
	}
	return art, nil
}

var bylinePrefixRe = regexp.MustCompile(`(?i)^\s*by[\s:]+`)

func cleanByline(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(bylinePrefixRe.ReplaceAllString(s, ""))
}
