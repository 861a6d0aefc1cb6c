package common

import (
	"net/http"
	"strconv"

	"entstore/application/ports"
)

const maxPageSize = 100

// PaginationInfo contains pagination details
type PaginationInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// ExtractListOptions builds provider list options from request query
// parameters: limit, offset, order_by, direction.
func ExtractListOptions(r *http.Request) ports.ListOptions {
	opts := ports.ListOptions{}
	q := r.URL.Query()

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			if n > maxPageSize {
				n = maxPageSize
			}
			opts.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n > 0 {
			opts.Offset = n
		}
	}
	if orderBy := q.Get("order_by"); orderBy != "" {
		opts.OrderBy = orderBy
	}
	if dir := q.Get("direction"); dir == string(ports.SortDesc) {
		opts.Direction = ports.SortDesc
	}

	return opts
}

// BuildPaginationMeta builds pagination metadata for a returned page.
func BuildPaginationMeta(opts ports.ListOptions, count int) *PaginationInfo {
	limit := opts.Limit
	return &PaginationInfo{
		Limit:   limit,
		Offset:  opts.Offset,
		Count:   count,
		HasMore: limit > 0 && count == limit,
	}
}
