package response

// Pagination defaults applied when the caller leaves page or limit unset.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes pages = ceil(total / limit), defaulting page to 1
// and limit to 10 when they are not positive.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}
}

// Page is the data payload of a paginated listing.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPage pairs items with their pagination metadata. A nil slice is
// replaced by an empty one so clients always see an array.
func NewPage[T any](items []T, p Pagination) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: p}
}
