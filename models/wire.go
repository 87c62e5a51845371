package models

import (
	"strconv"
	"time"
)

// The wire shapes below follow the catalog/pedidos REST contract: nested id
// objects and the total carried as a decimal string.

type UserRef struct {
	ID int64 `json:"id"`
}

type ProductRef struct {
	ProductID int64 `json:"productoId"`
}

type OrderLinePayload struct {
	Product  ProductRef `json:"producto"`
	Quantity int        `json:"cantidad"`
}

type OrderPayload struct {
	OrderID         *int64             `json:"pedidoId,omitempty"`
	CreatedAt       *time.Time         `json:"pedidoFecha,omitempty"`
	User            UserRef            `json:"user"`
	Total           string             `json:"valorTotal"`
	ShippingAddress string             `json:"direccionEnvio,omitempty"`
	Lines           []OrderLinePayload `json:"pedidoProductos"`
}

type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

type DeleteResponse struct {
	Deleted bool  `json:"deleted"`
	OrderID int64 `json:"pedidoId"`
}

func NewOrderPayload(o Order) OrderPayload {
	id := o.ID
	createdAt := o.CreatedAt
	p := OrderPayload{
		OrderID:         &id,
		User:            UserRef{ID: o.UserID},
		Total:           strconv.FormatInt(o.Total, 10),
		ShippingAddress: o.ShippingAddress,
		Lines:           make([]OrderLinePayload, 0, len(o.Lines)),
	}
	if !createdAt.IsZero() {
		p.CreatedAt = &createdAt
	}
	for _, l := range o.Lines {
		p.Lines = append(p.Lines, OrderLinePayload{Product: ProductRef{ProductID: l.ProductID}, Quantity: l.Quantity})
	}
	return p
}

func NewDraftPayload(d OrderDraft) OrderPayload {
	p := OrderPayload{
		User:            UserRef{ID: d.UserID},
		Total:           strconv.FormatInt(d.Total, 10),
		ShippingAddress: d.ShippingAddress,
		Lines:           make([]OrderLinePayload, 0, len(d.Lines)),
	}
	for _, l := range d.Lines {
		p.Lines = append(p.Lines, OrderLinePayload{Product: ProductRef{ProductID: l.ProductID}, Quantity: l.Quantity})
	}
	return p
}

// Draft converts a create request into a store draft. The total must be an
// integer string; an empty total is read as zero.
func (p OrderPayload) Draft() (OrderDraft, error) {
	var total int64
	if p.Total != "" {
		v, err := strconv.ParseInt(p.Total, 10, 64)
		if err != nil {
			return OrderDraft{}, ErrInvalidTotal
		}
		total = v
	}
	d := OrderDraft{
		UserID:          p.User.ID,
		Total:           total,
		ShippingAddress: p.ShippingAddress,
		Lines:           make([]OrderLine, 0, len(p.Lines)),
	}
	for _, l := range p.Lines {
		d.Lines = append(d.Lines, OrderLine{ProductID: l.Product.ProductID, Quantity: l.Quantity})
	}
	return d, nil
}

// Order converts a store response back into an Order.
func (p OrderPayload) Order() (Order, error) {
	d, err := p.Draft()
	if err != nil {
		return Order{}, err
	}
	o := Order{
		UserID:          d.UserID,
		Total:           d.Total,
		ShippingAddress: d.ShippingAddress,
		Lines:           d.Lines,
	}
	if p.OrderID != nil {
		o.ID = *p.OrderID
	}
	if p.CreatedAt != nil {
		o.CreatedAt = *p.CreatedAt
	}
	return o, nil
}
