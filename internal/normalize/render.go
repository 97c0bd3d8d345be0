package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Markdown converts normalised HTML to Markdown. On conversion failure the
// plain text is returned instead.
func Markdown(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return Text(htmlContent)
	}
	return strings.TrimSpace(md)
}

// Text extracts the visible text of an HTML body with whitespace collapsed.
func Text(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	// Keep words from adjacent blocks apart.
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, blockquote, div, td").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(doc.Text(), " "))
}

// Summary returns the first paragraph's text, cut at a word boundary so it
// is at most maxRunes long. Falls back to the whole text when there is no
// paragraph.
func Summary(htmlContent string, maxRunes int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	text := ""
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = strings.TrimSpace(whitespacePattern.ReplaceAllString(s.Text(), " "))
		return text == ""
	})
	if text == "" {
		text = Text(htmlContent)
	}
	return truncate(text, maxRunes)
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
