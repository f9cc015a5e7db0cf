package classify

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hamed0406/handlecheck/internal/domain"
)

// pageText returns the page title and its visible text. Script and style
// contents are dropped so phrases inside bundled JS do not match.
func pageText(obs domain.Observation) (string, string) {
	if len(obs.Body) == 0 {
		return obs.Title, ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(obs.Body))
	if err != nil {
		return obs.Title, string(obs.Body)
	}
	title := obs.Title
	if title == "" {
		title = doc.Find("title").First().Text()
	}
	doc.Find("script, style, noscript, template").Remove()
	return title, doc.Text()
}

var normalizer = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u00a0", " ")

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(normalizer.Replace(s)), " "))
}

func containsAny(hay string, phrases []string) (string, bool) {
	if len(phrases) == 0 {
		return "", false
	}
	h := normalize(hay)
	for _, p := range phrases {
		if n := normalize(p); n != "" && strings.Contains(h, n) {
			return p, true
		}
	}
	return "", false
}
