package services

import (
	"fmt"
	"strconv"
)

const PerPage = 20

// Paginator splits count items into pages of PerPage. There is always at
// least one page, even for zero items.
type Paginator struct {
	Count    int64
	PerPage  int
	NumPages int
}

func NewPaginator(count int64, perPage int) Paginator {
	if perPage <= 0 {
		perPage = PerPage
	}
	pages := int((count + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		pages = 1
	}
	return Paginator{Count: count, PerPage: perPage, NumPages: pages}
}

type Page struct {
	Number   int
	Offset   int
	Limit    int
	NumPages int
}

func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasNext() bool     { return p.Number < p.NumPages }
func (p Page) Previous() int     { return p.Number - 1 }
func (p Page) Next() int         { return p.Number + 1 }

// Page returns page n. Any n outside [1, NumPages], zero and negatives
// included, gives the last page.
func (p Paginator) Page(n int) Page {
	if n < 1 || n > p.NumPages {
		n = p.NumPages
	}
	return Page{Number: n, Offset: (n - 1) * p.PerPage, Limit: p.PerPage, NumPages: p.NumPages}
}

// ParsePageToken accepts "" (first page) or a base-10 integer. Anything else
// is ErrNotFound.
func ParsePageToken(token string) (int, error) {
	if token == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("page %q: %w", token, ErrNotFound)
	}
	return n, nil
}

// PageLink is either a page number or a gap marker.
type PageLink struct {
	Number int
	Gap    bool
}

// PageLinks lists page-5..page+5 within [1, numPages], with the first and
// last page added behind a gap when the window does not reach them.
func PageLinks(page, numPages int) []PageLink {
	start := max(page-5, 1)
	end := min(page+5, numPages)

	var out []PageLink
	if start > 1 {
		out = append(out, PageLink{Number: 1}, PageLink{Gap: true})
	}
	for n := start; n <= end; n++ {
		out = append(out, PageLink{Number: n})
	}
	if end < numPages {
		out = append(out, PageLink{Gap: true}, PageLink{Number: numPages})
	}
	return out
}
