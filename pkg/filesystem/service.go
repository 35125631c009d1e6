package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/archive"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/scanner"
	"github.com/uptrace/bun"
)

// ErrNotDirectory is returned when the browsed path is a file.
var ErrNotDirectory = errors.New("not a directory")

// Service lists server directories so admins can pick a library root.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// BrowseOptions has the same structure as BrowseQuery to allow direct type conversion.
type BrowseOptions BrowseQuery

// Browse lists the directory at opts.Path. Directories that are already a
// library's root carry that library's ID.
func (s *Service) Browse(ctx context.Context, opts BrowseOptions) (*BrowseResponse, error) {
	path := opts.Path
	if path == "" {
		path = "/"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		realPath = absPath
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	dirEntries, err := os.ReadDir(realPath)
	if err != nil {
		return nil, err
	}

	roots, err := s.libraryRoots(ctx)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, de := range dirEntries {
		name := de.Name()

		if !opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(opts.Search)) {
			continue
		}
		if opts.DirsOnly && !de.IsDir() {
			continue
		}

		entry := Entry{
			Name:  name,
			Path:  filepath.Join(realPath, name),
			IsDir: de.IsDir(),
		}
		if entry.IsDir {
			entry.LibraryID = roots[entry.Path]
		} else {
			entry.IsBook = scanner.BookExtensions[strings.ToLower(filepath.Ext(name))]
		}
		entries = append(entries, entry)
	}

	// Directories first, then files, both in the scanner's natural order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return archive.NaturalLess(entries[i].Name, entries[j].Name)
	})

	total := len(entries)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)

	parentPath := ""
	if realPath != "/" {
		parentPath = filepath.Dir(realPath)
	}

	return &BrowseResponse{
		CurrentPath:      realPath,
		CurrentLibraryID: roots[realPath],
		ParentPath:       parentPath,
		Entries:          entries[start:end],
		Total:            total,
		HasMore:          end < total,
	}, nil
}

func (s *Service) libraryRoots(ctx context.Context) (map[string]*int, error) {
	libraries := []*models.Library{}
	err := s.db.NewSelect().
		Model(&libraries).
		Column("l.id", "l.root").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	roots := make(map[string]*int, len(libraries))
	for _, library := range libraries {
		id := library.ID
		roots[library.Root] = &id
	}
	return roots, nil
}
