package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/samber/lo"
)

const PageSize = 20

var (
	ErrCatalogEmpty     = errors.New("catalog has no entries")
	ErrNoSuchEntry      = errors.New("no such catalog entry")
	ErrMalformedCatalog = errors.New("malformed catalog source line")
)

// ParseRemoteSource reads a displayName,url list, one entry per line.
// Blank lines are ignored.
func ParseRemoteSource(r io.Reader) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		name, url, ok := strings.Cut(text, ",")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("%w: line %d", ErrMalformedCatalog, line)
		}

		entries = append(entries, models.CatalogEntry{
			DisplayName: strings.TrimSpace(name),
			Kind:        models.SourceRemote,
			Location:    strings.TrimSpace(url),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog source: %w", err)
	}

	return entries, nil
}

// Merge builds the selectable catalog: storage-resident images first,
// remote entries after, relative order preserved on both sides.
func Merge(local []string, remote []models.CatalogEntry) []models.CatalogEntry {
	merged := lo.Map(local, func(name string, _ int) models.CatalogEntry {
		return models.CatalogEntry{DisplayName: name, Kind: models.SourceLocal}
	})

	return append(merged, remote...)
}

// View is a fixed-size paginated view over a merged catalog. Rebuilt on
// every query, never persisted.
type View struct {
	pages [][]models.CatalogEntry
	page  int
}

func NewView(entries []models.CatalogEntry) (*View, error) {
	if len(entries) == 0 {
		return nil, ErrCatalogEmpty
	}

	return &View{pages: lo.Chunk(entries, PageSize)}, nil
}

func (v *View) Page() []models.CatalogEntry {
	return v.pages[v.page]
}

func (v *View) PageNumber() int {
	return v.page + 1
}

func (v *View) PageCount() int {
	return len(v.pages)
}

func (v *View) Next() bool {
	if v.page+1 >= len(v.pages) {
		return false
	}

	v.page++

	return true
}

func (v *View) Prev() bool {
	if v.page == 0 {
		return false
	}

	v.page--

	return true
}

// Select resolves a 1-based position on the current page.
func (v *View) Select(position int) (models.CatalogEntry, error) {
	page := v.Page()
	if position < 1 || position > len(page) {
		return models.CatalogEntry{}, fmt.Errorf("%w: position %d", ErrNoSuchEntry, position)
	}

	return page[position-1], nil
}
