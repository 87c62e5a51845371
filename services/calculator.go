package services

import (
	"pedido-service/models"
	"pedido-service/utils"
)

// Calculator prices cart snapshots. It holds no state; totals are recomputed
// from whatever snapshot is passed in.
type Calculator struct{}

// LineAmount is the parsed unit price times quantity. Unparseable prices
// count as 0.
func (Calculator) LineAmount(p models.Product, quantity int) int64 {
	return utils.ParsePrice(p.Price) * int64(quantity)
}

func (c Calculator) Total(lines []CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += c.LineAmount(line.Product, line.Quantity)
	}
	return total
}

// OrderLines converts a snapshot into the store's line representation.
func (Calculator) OrderLines(lines []CartLine) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderLine{ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	return out
}

type CheckoutLine struct {
	Product  models.Product
	Quantity int
	Amount   string
}

// CheckoutSummary is what the checkout dialog shows before submission.
type CheckoutSummary struct {
	Lines           []CheckoutLine
	Total           int64
	FormattedTotal  string
	ShippingAddress string
}

func (c Calculator) Summary(lines []CartLine, shippingAddress string) CheckoutSummary {
	s := CheckoutSummary{
		Lines:           make([]CheckoutLine, 0, len(lines)),
		ShippingAddress: shippingAddress,
	}
	for _, line := range lines {
		amount := c.LineAmount(line.Product, line.Quantity)
		s.Lines = append(s.Lines, CheckoutLine{
			Product:  line.Product,
			Quantity: line.Quantity,
			Amount:   utils.FormatPrice(amount),
		})
		s.Total += amount
	}
	s.FormattedTotal = utils.FormatPrice(s.Total)
	return s
}
