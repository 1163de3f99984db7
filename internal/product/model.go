package product

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Input is the full replacement payload used by both create and update.
type Input struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
}

func (in Input) apply(p *Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Quantity = in.Quantity
}
