package web

// pagination.go describes the pagination of list results. The record
// count comes from the row_count window column carried by each listing
// row.

// pageLen is the number of records in a page listing.
const pageLen = 15

// Pagination describes the position of a listing page within the
// full result set.
type Pagination struct {
	Page         int  `json:"page"`
	PageLength   int  `json:"pageLength"`
	Pages        int  `json:"pages"`
	TotalRecords int  `json:"totalRecords"`
	HasNext      bool `json:"hasNext"`
	HasPrevious  bool `json:"hasPrevious"`
}

// newPagination makes a Pagination for a listing page. A page beyond
// the last simply has no records; the page number is not clamped.
func newPagination(totalRecords, currentPage int) *Pagination {
	pages := (totalRecords + pageLen - 1) / pageLen
	if pages < 1 {
		pages = 1
	}
	return &Pagination{
		Page:         currentPage,
		PageLength:   pageLen,
		Pages:        pages,
		TotalRecords: totalRecords,
		HasNext:      currentPage < pages,
		HasPrevious:  currentPage > 1,
	}
}
