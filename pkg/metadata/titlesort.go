package metadata

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TitleArticles are moved from the beginning of titles to the end.
var TitleArticles = []string{
	"The",
	"A",
	"An",
}

// ForTitle generates a sort title from a display title.
// Leading articles are moved to the end.
// Examples:
//   - "The Walking Dead" -> "Walking Dead, The"
//   - "A Silent Voice" -> "Silent Voice, A"
//   - "Berserk" -> "Berserk" (no change)
func ForTitle(title string) string {
	title = strings.TrimSpace(norm.NFC.String(title))
	if title == "" {
		return ""
	}

	for _, article := range TitleArticles {
		prefix := article + " "
		if len(title) > len(prefix) && strings.EqualFold(title[:len(prefix)], prefix) {
			// Keep the article's original case
			actualArticle := title[:len(article)]
			rest := strings.TrimSpace(title[len(prefix):])
			if rest != "" {
				return rest + ", " + actualArticle
			}
		}
	}

	return title
}
