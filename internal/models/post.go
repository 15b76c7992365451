package models

// Post is one searchable entry of the static blog index.
// Description may be absent in the source JSON; it decodes to "".
type Post struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Date        string `json:"date"`
}
