package core

// DefaultPerPage is the page size used when Paginate is given none.
const DefaultPerPage = 20

// PageMeta describes the position of a page in a paginated result.
type PageMeta struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"perPage"`
	CurrentPage int   `json:"currentPage"`
	FirstPage   int   `json:"firstPage"`
	LastPage    int   `json:"lastPage"`
}

// HasMorePages reports whether pages exist after the current one.
func (p PageMeta) HasMorePages() bool { return p.CurrentPage < p.LastPage }

// Paginator is the type-erased view of a Page handed to after paginate hooks.
type Paginator interface {
	Meta() PageMeta
	Rows() []Row
	Len() int
}

// PaginateQueries is the payload of before paginate hooks: the count query
// and the page query, in that order of execution.
type PaginateQueries struct {
	Count QueryBuilder
	Query QueryBuilder
}

// Page is one page of entities returned by Model.Paginate.
type Page[T any] struct {
	PageMeta
	Items []*T `json:"items"`
}

var _ Paginator = (*Page[struct{ Base }])(nil)

func newPage[T any](items []*T, total int64, page, perPage int) *Page[T] {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return &Page[T]{
		PageMeta: PageMeta{
			Total:       total,
			PerPage:     perPage,
			CurrentPage: page,
			FirstPage:   1,
			LastPage:    lastPage,
		},
		Items: items,
	}
}

// Meta returns the pagination metadata.
func (p *Page[T]) Meta() PageMeta { return p.PageMeta }

// Len returns the number of items on the page.
func (p *Page[T]) Len() int { return len(p.Items) }

// Rows returns the items as rows.
func (p *Page[T]) Rows() []Row {
	rows := make([]Row, 0, len(p.Items))
	for _, item := range p.Items {
		if row, ok := asRow(item); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
