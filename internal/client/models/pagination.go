package models

// Pagination mirrors the "pagination" member of a list envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// WithTotal returns p with TotalItems set to total and TotalPages recomputed.
// TotalPages never drops below 1.
func (p Pagination) WithTotal(total int) Pagination {
	if total < 0 {
		total = 0
	}
	p.TotalItems = total
	p.TotalPages = 1
	if p.Limit > 0 && total > 0 {
		p.TotalPages = (total + p.Limit - 1) / p.Limit
	}
	return p
}

// HasNext reports whether a page after Page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// HasPrev reports whether a page before Page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// ListOptions select a page of a list resource. It is part of the
// dependency key of list loaders, so it must stay comparable.
type ListOptions struct {
	Page  int
	Limit int
	Sort  string
}

// DefaultListOptions is page 1 of 10 items, newest first.
func DefaultListOptions() ListOptions {
	return ListOptions{Page: 1, Limit: 10, Sort: "newest"}
}

// Page is one page of a list resource together with the pagination the
// server reported for it.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}
