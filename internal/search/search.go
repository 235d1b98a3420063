// Package search provides post search: Meilisearch when reachable, an
// in-memory scan over the live collection otherwise.
package search

// Query describes a post search. Field narrows matching to one attribute
// ("title", "author" or "category"); empty means all three. Category is an
// exact filter on top of the text match; "All" and "" disable it.
type Query struct {
	Text     string
	Field    string
	Category string
	Limit    int
	Offset   int
}

// Result is one matching post.
type Result struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Author      string `json:"author"`
	PublishDate string `json:"publishDate"`
	Status      string `json:"status"`
	Views       int    `json:"views"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
