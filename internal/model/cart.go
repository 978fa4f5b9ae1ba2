package model

// CartLineItem はカート内の1商品行を表す。
// IDは商品識別子で、カート内で一意となる。
type CartLineItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image,omitempty"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
}

// Subtotal は行小計（価格×数量）を返す。
func (i CartLineItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
