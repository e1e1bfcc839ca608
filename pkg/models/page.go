package models

// Page is one page of a paginated listing.
type Page[E any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []E     `json:"results"`
}

func (p Page[E]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

func (p Page[E]) HasPrevious() bool {
	return p.Previous != nil && *p.Previous != ""
}
