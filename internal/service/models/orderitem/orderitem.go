package orderitem

// OrderItem is a cart line captured by value at submission time, so the
// order stays accurate even if the live catalog changes later.
type OrderItem struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl"`
	Unit      string `json:"unit"`
}

// LineTotal returns the price contribution of this line.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Subtotal sums the line totals of items.
func Subtotal(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}
