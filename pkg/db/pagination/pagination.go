package pagination

// Pagination carries the list-query paging knobs bound from the request.
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// PageInfo is echoed back alongside list responses.
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Normalize clamps the paging parameters to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }
