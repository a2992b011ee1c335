package schema

import "fmt"

// Tag is the derived usage aggregate for a tag name.
//
// Count equals the number of stored posts whose tag list contains Name.
// A tag record is removed the moment its count reaches zero; the store
// never keeps zero-count tags around.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Validate checks if the Tag has valid field values.
func (t *Tag) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Count < 0 {
		return fmt.Errorf("count must be non-negative (got %d)", t.Count)
	}
	return nil
}
