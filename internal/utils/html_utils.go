package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTML adds lazy loading and referrer attributes to images.
func EnhanceHTML(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	imgs := doc.Find("img")
	if imgs.Length() == 0 {
		return htmlStr
	}
	imgs.Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	// goquery wraps fragments in a full document
	out, err := doc.Find("body").Html()
	if err != nil || out == "" {
		return htmlStr
	}
	return out
}
