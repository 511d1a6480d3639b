package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const articleDoc = `<!doctype html>
<html><head><title>Night Trains of Europe</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Night Trains of Europe</h1>
<p class="byline">By Jane Doe</p>
<p>Night trains are coming back across the continent, and the reasons are practical as much as romantic. Travellers who want to avoid short flights are finding that a sleeper berth can replace both a hotel night and an early airport transfer.</p>
<figure><img src="/trains.jpg" alt="A sleeper carriage"></figure>
<p>Operators have ordered new rolling stock, and several routes that closed a decade ago now run again. The new carriages offer private compartments, showers and proper breakfasts, which makes the overnight journey comfortable for families and business travellers alike.</p>
<p>Prices remain the sticking point. A berth still costs more than a budget flight on most routes, although the gap narrows once the <a href="/hotels">hotel night</a> is taken into account and the city-centre arrival is counted as time saved.</p>
<video src="/clip.mp4"></video>
</article>
<footer>Copyright</footer>
</body></html>`

func TestExtract_Article(t *testing.T) {
	e := New(DefaultSettings(), nil)
	art, err := e.Extract([]byte(articleDoc), "https://example.com/trains")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if art.Title != "Night Trains of Europe" {
		t.Fatalf("title = %q", art.Title)
	}
	if !strings.Contains(art.Text, "sleeper berth") {
		t.Fatalf("text missing body: %q", art.Text)
	}
	for _, tag := range []string{"<img", "<video", "<script"} {
		if strings.Contains(art.HTML, tag) {
			t.Fatalf("html still contains %s: %s", tag, art.HTML)
		}
	}
	if !strings.Contains(art.HTML, "<a ") {
		t.Fatalf("expected links to survive: %s", art.HTML)
	}
	if art.Chars() == 0 {
		t.Fatal("expected non-zero char count")
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	e := New(DefaultSettings(), nil)
	if _, err := e.Extract([]byte(`<html><head></head><body></body></html>`), "https://example.com/"); err == nil {
		t.Fatal("expected an error for an empty document")
	}
}

func TestExtract_InvalidPageURL(t *testing.T) {
	e := New(DefaultSettings(), nil)
	if _, err := e.Extract([]byte(articleDoc), "http://[::1"); err == nil {
		t.Fatal("expected error for invalid page url")
	}
}

func TestCleanHTML(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{
			name:    "drops media",
			in:      `<p>Text <img src="a.png"> more</p><picture><source srcset="b.webp"></picture><iframe src="x"></iframe>`,
			want:    []string{"<p>Text  more</p>"},
			notWant: []string{"<img", "<picture", "<source", "<iframe"},
		},
		{
			name:    "drops first text-only h1",
			in:      `<h1>Title</h1><p>Body</p><h1>Second</h1>`,
			want:    []string{"<p>Body</p>", "<h1>Second</h1>"},
			notWant: []string{"<h1>Title</h1>"},
		},
		{
			name: "keeps h1 with markup",
			in:   `<h1><a href="/x">Linked</a></h1><p>Body</p>`,
			want: []string{`<h1><a href="/x">Linked</a></h1>`},
		},
		{
			name:    "drops empty figures",
			in:      `<figure><img src="a.png"></figure><figure><img src="b.png"><figcaption>Caption</figcaption></figure>`,
			want:    []string{"<figcaption>Caption</figcaption>"},
			notWant: []string{"<img"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cleanHTML(tc.in)
			if err != nil {
				t.Fatalf("cleanHTML: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Fatalf("missing %q in %q", w, got)
				}
			}
			for _, w := range tc.notWant {
				if strings.Contains(got, w) {
					t.Fatalf("unexpected %q in %q", w, got)
				}
			}
		})
	}
}

func TestCleanByline(t *testing.T) {
	cases := map[string]string{
		"By Jane Doe":      "Jane Doe",
		"  by:  Jane  Doe": "Jane Doe",
		"Jane Doe":         "Jane Doe",
		"Byron Smith":      "Byron Smith",
		"":                 "",
	}
	for in, want := range cases {
		if got := cleanByline(in); got != want {
			t.Fatalf("cleanByline(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings missing: %v", err)
	}
	if s.MaxRedirects != 2 || s.MaxFileSize != 20_000_000 || s.DownloadTimeout != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	path := filepath.Join(dir, "extract.yaml")
	body := "download_timeout: 45s\nmax_redirects: 5\nuser_agents:\n  - \"\"\n  - keen-test/1.0\ncookie: a=b\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err = LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.DownloadTimeout != 45*time.Second || s.MaxRedirects != 5 || s.Cookie != "a=b" {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.UserAgent() != "keen-test/1.0" {
		t.Fatalf("UserAgent = %q", s.UserAgent())
	}
	if s.MaxFileSize != 20_000_000 {
		t.Fatalf("expected default max size to survive, got %d", s.MaxFileSize)
	}

	if err := os.WriteFile(path, []byte("max_redirects: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected parse error")
	}
}
