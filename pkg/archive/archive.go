// Package archive reads book containers: zip/cbz archives for pages, PDFs for
// page counts.
package archive

import (
	"archive/zip"
	"bytes"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// MaxEntrySize is the maximum size for a single entry (100 MB).
// This prevents decompression bombs from consuming excessive memory.
const MaxEntrySize = 100 * 1024 * 1024

const (
	MediaTypeZip = "application/zip"
	MediaTypeCBZ = "application/vnd.comicbook+zip"
	MediaTypePDF = "application/pdf"
)

// sniffSize is how much of each page is read to detect its format and size.
const sniffSize = 64 * 1024

var (
	ErrPageOutOfRange = errors.New("page out of range")
	ErrEntryTooLarge  = errors.New("archive entry exceeds size limit")
	ErrUnsupported    = errors.New("unsupported container")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// DetectMediaType sniffs the container format of the file at path. Any zip
// flavor is reported as a comic book archive.
func DetectMediaType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is(MediaTypeZip):
			return MediaTypeCBZ, nil
		case m.Is(MediaTypePDF):
			return MediaTypePDF, nil
		}
	}
	return mt.String(), nil
}

type Page struct {
	FileName  string
	MediaType string
	Width     int
	Height    int
}

// Zip is an open comic book archive. Pages are the image entries in natural
// name order.
type Zip struct {
	f     *os.File
	r     *zip.Reader
	pages []*zip.File
}

func OpenZip(path string) (*Zip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.WithStack(err)
	}

	r, err := zip.NewReader(f, stats.Size())
	if err != nil {
		f.Close()
		return nil, errors.WithStack(err)
	}

	return &Zip{f: f, r: r, pages: sortedImageFiles(r)}, nil
}

func (z *Zip) Close() error {
	return z.f.Close()
}

func (z *Zip) PageCount() int {
	return len(z.pages)
}

// Pages describes every page. Format and dimensions come from the first bytes
// of each entry; pages that can't be decoded keep a zero size.
func (z *Zip) Pages() ([]Page, error) {
	pages := make([]Page, 0, len(z.pages))
	for _, file := range z.pages {
		head, err := readHead(file)
		if err != nil {
			return nil, err
		}
		page := Page{
			FileName:  file.Name,
			MediaType: mimetype.Detect(head).String(),
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(head)); err == nil {
			page.Width = cfg.Width
			page.Height = cfg.Height
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// ReadPage returns the bytes of the 1-based page n.
func (z *Zip) ReadPage(n int) ([]byte, error) {
	if n < 1 || n > len(z.pages) {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d of %d", n, len(z.pages))
	}
	return readAll(z.pages[n-1])
}

// ReadEntry returns the named entry, matched case-insensitively anywhere in
// the archive. The bool is false when there's no such entry.
func (z *Zip) ReadEntry(name string) ([]byte, bool, error) {
	for _, file := range z.r.File {
		if strings.EqualFold(filepath.Base(file.Name), name) {
			b, err := readAll(file)
			return b, true, err
		}
	}
	return nil, false, nil
}

func readAll(file *zip.File) ([]byte, error) {
	if file.UncompressedSize64 > MaxEntrySize {
		return nil, errors.Wrap(ErrEntryTooLarge, file.Name)
	}
	r, err := file.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	// Use LimitReader to prevent decompression bombs
	b, err := io.ReadAll(io.LimitReader(r, MaxEntrySize+1))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(b) > MaxEntrySize {
		return nil, errors.Wrap(ErrEntryTooLarge, file.Name)
	}
	return b, nil
}

func readHead(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, errors.WithStack(err)
	}
	return buf[:n], nil
}

func sortedImageFiles(r *zip.Reader) []*zip.File {
	var imageFiles []*zip.File
	for _, file := range r.File {
		if file.FileInfo().IsDir() {
			continue
		}
		base := filepath.Base(file.Name)
		// macOS resource forks
		if strings.HasPrefix(base, "._") || strings.HasPrefix(file.Name, "__MACOSX/") {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(base))] {
			imageFiles = append(imageFiles, file)
		}
	}

	sort.SliceStable(imageFiles, func(i, j int) bool {
		return NaturalLess(imageFiles[i].Name, imageFiles[j].Name)
	})

	return imageFiles
}

// PDFPageCount returns the number of pages of the PDF at path.
func PDFPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}
