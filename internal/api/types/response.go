// internal/api/types/response.go
package types

// PaginatedResponse is one page of a list. TotalCount counts every item, not just this page.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}

// NewPage builds a page, replacing a nil slice so it encodes as [].
func NewPage[T any](data []T, limit, offset int, total int64) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{Data: data, Limit: limit, Offset: offset, TotalCount: total}
}

// ErrorResponse is the body of every non-2xx response. Error is the machine-readable kind.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
