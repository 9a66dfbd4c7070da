package models

import "strconv"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Page struct {
	Page  int
	Limit int
}

func DefaultPage() Page {
	return Page{Page: 1, Limit: DefaultPageLimit}
}

// ParsePage reads page and limit query values. Empty values fall back to
// the defaults; anything else must be a positive integer.
func ParsePage(page, limit string) (Page, error) {
	p := DefaultPage()
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return p, BadRequest("page must be a positive integer")
		}
		p.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return p, BadRequest("limit must be a positive integer")
		}
		if n > MaxPageLimit {
			n = MaxPageLimit
		}
		p.Limit = n
	}
	return p, nil
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Page) TotalPages(totalCount int) int {
	if p.Limit < 1 {
		return 0
	}
	return (totalCount + p.Limit - 1) / p.Limit
}
