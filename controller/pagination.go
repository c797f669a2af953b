package controller

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

// page decodes one paged item array from a GET response.
func page[T any](ctx context.Context, c *Controller, basePath string, limit, offset int) ([]T, envelope.Pagination, *edgeerr.Error) {
	sep := "?"
	if strings.Contains(basePath, "?") {
		sep = "&"
	}
	path := fmt.Sprintf("%s%slimit=%d&offset=%d", basePath, sep, limit, offset)
	result := c.do(ctx, http.MethodGet, c.url(path), false, nil)
	if result.Err != nil {
		return nil, envelope.Pagination{}, result.Err
	}
	items, raw, err := envelope.Decode[[]T](result.Body, result.Status, c.logger)
	if err != nil {
		return nil, envelope.Pagination{}, err
	}
	var meta envelope.Pagination
	if raw != nil {
		meta = raw.Meta.Pagination
	}
	return items, meta, nil
}

// paginate drives the full limit/offset walk described by §4.C's
// pagination algorithm: grow the accumulated slice to at least
// totalCount+1 capacity, append each page in order, and continue while
// totalCount > offset+limit. Capacity tracking is implicit in Go's append;
// the tie-break rule ("if totalCount grows, grow; if it shrinks, trust it
// for the loop condition but never truncate") falls out naturally because
// we never truncate out, only decide whether to keep requesting.
func paginate[T any](ctx context.Context, c *Controller, basePath string, limit int) ([]T, *edgeerr.Error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	var out []T
	offset := 0
	for {
		items, meta, err := page[T](ctx, c, basePath, limit, offset)
		if err != nil {
			return nil, err
		}
		if cap(out) < meta.TotalCount+1 {
			grown := make([]T, len(out), meta.TotalCount+1)
			copy(grown, out)
			out = grown
		}
		out = append(out, items...)
		offset += len(items)
		if meta.TotalCount <= offset || len(items) == 0 {
			break
		}
	}
	return out, nil
}
