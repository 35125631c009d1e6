package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tankobon/tankobon/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// Ordered from most to least specific. The first capture group is the number.
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:vol(?:ume)?\.?|v)\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)\b(?:ch(?:apter)?\.?|c)\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`#\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?:^|[\s_\-])(\d+(?:\.\d+)?)\s*(?:\([^)]*\)\s*)*$`),
}

var leadingNumberRE = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)`)

// NumberFromFilename extracts a book number from a file name such as
// "Alpha v01.cbz", "Alpha #3.cbz", "Alpha vol. 2.cbz" or "Alpha 012.cbz".
func NumberFromFilename(name string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	for _, re := range numberPatterns {
		if m := re.FindStringSubmatch(base); len(m) >= 2 {
			return normalizeNumber(m[1]), true
		}
	}
	return "", false
}

// normalizeNumber strips leading zeros so "007" and "7" compare equal.
func normalizeNumber(n string) string {
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return n
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NumberSort derives the numeric sort key for a book number such as "3",
// "3.5" or "12a". Numbers that don't start with digits have no sort key.
func NumberSort(number string) (float64, bool) {
	m := leadingNumberRE.FindStringSubmatch(number)
	if len(m) < 2 {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// TitleFromFilename turns a file name into a display title.
func TitleFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	return CleanTitle(base)
}

// CleanTitle normalizes unicode and collapses whitespace.
func CleanTitle(title string) string {
	return strings.Join(strings.Fields(norm.NFC.String(title)), " ")
}

// BookCandidates collects metadata candidates for a book. ComicInfo values
// win; the file name fills in whatever ComicInfo left out. The number sort
// follows the book's own number while that is locked.
func BookCandidates(book *models.Book, info *ComicInfo) Update {
	path := book.Path
	u := Update{}

	if info != nil {
		if title := CleanTitle(info.Title); title != "" {
			u.Set(FieldTitle, title)
		}
		number := strings.TrimSpace(info.Number)
		if number == "" {
			number = strings.TrimSpace(info.Volume)
		}
		if number != "" {
			u.Set(FieldNumber, normalizeNumber(number))
		}
	}

	u.SetIfAbsent(FieldTitle, TitleFromFilename(path))
	if number, ok := NumberFromFilename(path); ok {
		u.SetIfAbsent(FieldNumber, number)
	}

	number, ok := u.Values[FieldNumber].(string)
	if book.NumberLock {
		number, ok = book.Number, true
	}
	if ok {
		if sort, ok := NumberSort(number); ok {
			u.Set(FieldNumberSort, sort)
		}
	}

	return u
}

// SeriesCandidates re-derives the series title sort from its title.
func SeriesCandidates(title string) Update {
	u := Update{}
	u.Set(FieldTitleSort, ForTitle(title))
	return u
}
