package noteservice

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Export is a note rendered for download.
type Export struct {
	Filename string
	Body     string
}

var fileUnsafe = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

// RenderMarkdown renders "# title" followed by the plain text of content.
func RenderMarkdown(title, content string) Export {
	name := strings.TrimSpace(fileUnsafe.Replace(title))
	if name == "" {
		name = "untitled"
	}
	return Export{
		Filename: name + ".md",
		Body:     "# " + title + "\n\n" + PlainText(content),
	}
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Hr: true,
	atom.Ul: true, atom.Ol: true,
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// PlainText strips markup from rich-text content. Block elements become line
// breaks; script and style bodies are dropped.
func PlainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.TrimSpace(content)
			}
			return strings.TrimSpace(blankRuns.ReplaceAllString(b.String(), "\n\n"))
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			}
			if blockAtoms[a] {
				b.WriteByte('\n')
			}
		}
	}
}
