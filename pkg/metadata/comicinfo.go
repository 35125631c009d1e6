package metadata

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ComicInfo is the subset of the ComicRack ComicInfo.xml schema used for
// book metadata.
type ComicInfo struct {
	XMLName xml.Name `xml:"ComicInfo"`
	Title   string   `xml:"Title"`
	Series  string   `xml:"Series"`
	Number  string   `xml:"Number"`
	Volume  string   `xml:"Volume"`
	Pages   struct {
		Page []ComicPageInfo `xml:"Page"`
	} `xml:"Pages"`
}

type ComicPageInfo struct {
	Image string `xml:"Image,attr"`
	Type  string `xml:"Type,attr"`
}

func ParseComicInfo(b []byte) (*ComicInfo, error) {
	comicInfo := &ComicInfo{}
	if err := xml.Unmarshal(b, comicInfo); err != nil {
		return nil, errors.WithStack(err)
	}
	return comicInfo, nil
}

// FrontCover returns the 0-based index of the page marked as the front cover,
// if any.
func (ci *ComicInfo) FrontCover() (int, bool) {
	for _, page := range ci.Pages.Page {
		if strings.EqualFold(page.Type, "FrontCover") {
			if n, err := strconv.Atoi(page.Image); err == nil && n >= 0 {
				return n, true
			}
		}
	}
	return 0, false
}
