package inventory

import "sort"

// Item is a signed stock adjustment for one product. Positive quantities
// deduct stock, negative quantities return it.
type Item struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// UpdateRequest is the payload sent to the inventory service.
type UpdateRequest struct {
	BusinessEntityID int64  `json:"businessEntityId"`
	Items            []Item `json:"items"`
}

// ItemStatus reports the outcome for one product.
type ItemStatus struct {
	ProductID int64  `json:"productId"`
	Updated   bool   `json:"updated"`
	Reason    string `json:"reason,omitempty"`
}

// UpdateResponse is the optional body returned by the inventory service.
type UpdateResponse struct {
	Success      bool         `json:"success"`
	ItemStatuses []ItemStatus `json:"itemStatuses,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// FromDelta converts a product -> signed quantity map into request items,
// dropping zero entries. Items are ordered by product id.
func FromDelta(delta map[int64]int) []Item {
	items := make([]Item, 0, len(delta))
	for productID, qty := range delta {
		if qty == 0 {
			continue
		}
		items = append(items, Item{ProductID: productID, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items
}
