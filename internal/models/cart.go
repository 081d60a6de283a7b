package models

// Destination is the sellable item a cart line or booking detail points at
type Destination struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// CartLine represents one pending, unpurchased ticket request
type CartLine struct {
	ID          int64       `json:"id"`
	Destination Destination `json:"destination"`
	VisitDate   string      `json:"visit_date"`
	Quantity    int         `json:"quantity"`
	TotalPrice  Amount      `json:"total_price"` // authoritative, computed by the backend
}

// CartLineIDs returns the ids of the given lines in order
func CartLineIDs(lines []CartLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	return ids
}
