package catalog

// PageSize is the number of products shown per listing page.
const PageSize = 24

// Page is one slice of a filtered listing.
type Page struct {
	Items      []Product `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalItems int       `json:"total_items"`
	TotalPages int       `json:"total_pages"`
}

// TotalPages returns ceil(n / PageSize).
func TotalPages(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// Paginate returns the requested page of items. A page that is below 1 or
// past the end of the listing falls back to page 1.
func Paginate(items []Product, page int) Page {
	total := len(items)
	if page < 1 || (page-1)*PageSize >= total {
		page = 1
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, total)

	pageItems := make([]Product, 0, end-start)
	if start < end {
		pageItems = append(pageItems, items[start:end]...)
	}

	return Page{
		Items:      pageItems,
		Page:       page,
		PageSize:   PageSize,
		TotalItems: total,
		TotalPages: TotalPages(total),
	}
}

// StateKey identifies the pipeline input: the filter selection plus the
// version of the source listing.
func StateKey(fs FilterState, sourceVersion string) string {
	return sourceVersion + "#" + fs.Key()
}

// ResolvePage returns the page to show for a request. Clients echo back the
// state key they received with the previous page; when it no longer matches
// the current input the listing restarts at page 1.
func ResolvePage(requested int, fs FilterState, sourceVersion, previousKey string) (page int, key string) {
	key = StateKey(fs, sourceVersion)
	if requested < 1 {
		return 1, key
	}
	if previousKey != "" && previousKey != key {
		return 1, key
	}
	return requested, key
}
