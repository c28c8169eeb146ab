package analytics

// DefaultPageSize is the number of tokens shown per page.
const DefaultPageSize = 5

// Paginate returns the 1-based page of items and the page count. Pages out
// of range return an empty slice.
func Paginate[T any](items []T, page, perPage int) ([]T, int) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	pages := (len(items) + perPage - 1) / perPage
	if page < 1 || page > pages {
		return []T{}, pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pages
}
