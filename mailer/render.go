package mailer

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quailyquaily/keen/extract"
)

const (
	SavedDateLayout = "January 02, 2006"

	maxFilenameRunes = 100
	fallbackFilename = "article"
)

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: Georgia, serif;
            line-height: 1.6;
            max-width: 40em;
            margin: 0 auto;
            padding: 1em;
        }
        h1 { line-height: 1.2; margin-bottom: 0.25em; }
        .meta { color: #666; font-size: 0.9em; margin-bottom: 2em; border-bottom: 1px solid #ccc; padding-bottom: 1em; }
        .author { margin: 0.25em 0; }
        .source { font-size: 0.85em; word-break: break-all; }
        p { margin: 1em 0; }
        figure { margin: 2em 0; }
        figcaption { font-size: 0.9em; color: #666; }
        blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1em; color: #555; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="meta">
        {{- if .Author}}
        <p class="author">By {{.Author}}</p>
        {{- end}}
        <p class="source">Source: {{.Source}}</p>
        <p class="date">Saved: {{.Date}}</p>
    </div>
    <article>
        {{.Content}}
    </article>
</body>
</html>
`))

type documentData struct {
	Title   string
	Author  string
	Source  string
	Date    string
	Content template.HTML
}

// Render wraps the cleaned article body in the standalone document that is
// attached to the email. Title, author and source are escaped; the body is
// trusted extractor output.
func Render(art extract.Article, sourceURL string, now time.Time) ([]byte, error) {
	title := strings.TrimSpace(art.Title)
	if title == "" {
		title = extract.DefaultTitle
	}
	var buf bytes.Buffer
	err := documentTmpl.Execute(&buf, documentData{
		Title:   title,
		Author:  strings.TrimSpace(art.Author),
		Source:  sourceURL,
		Date:    now.Format(SavedDateLayout),
		Content: template.HTML(art.HTML),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*'\x{2018}\x{2019}\x00-\x1f]`)

// SanitizeFilename makes title safe as an attachment name: reserved
// characters and quote marks are dropped and the result is capped at 100
// characters. An empty result becomes "article".
func SanitizeFilename(title string) string {
	s := unsafeFilenameRe.ReplaceAllString(title, "")
	if utf8.RuneCountInString(s) > maxFilenameRunes {
		s = string([]rune(s)[:maxFilenameRunes])
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallbackFilename
	}
	return s
}
