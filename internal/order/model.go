package order

import "time"

// DefaultStatus is assigned to every new order. Status is free text
// afterwards; no transition rules apply.
const DefaultStatus = "processing"

type Order struct {
	ID        int64
	CreatedAt time.Time
	Status    string
	Items     []OrderItem
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
}

type ItemInput struct {
	ProductID int64
	Quantity  int
}

// ProductIDs returns the distinct product ids referenced by the order.
func (o *Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// Units is the total quantity across all items.
func (o *Order) Units() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
