package model

// Tag is a label attached to posts. Slug is derived from Name and is the tag's
// identity: two names that slugify the same are the same tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
