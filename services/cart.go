package services

import (
	"sync"

	"pedido-service/models"
)

type CartLine struct {
	Product  models.Product
	Quantity int
}

// Cart maps products to quantities for the current checkout session. Lines
// keep the order in which products were first added. A line never holds a
// quantity below 1.
type Cart struct {
	mu    sync.Mutex
	order []int64
	lines map[int64]*CartLine
}

func NewCart() *Cart {
	return &Cart{lines: make(map[int64]*CartLine)}
}

// Add puts one more unit of p in the cart.
func (c *Cart) Add(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[p.ID]; ok {
		line.Quantity++
		return
	}
	c.lines[p.ID] = &CartLine{Product: p, Quantity: 1}
	c.order = append(c.order, p.ID)
}

// Decrement takes one unit of p out, dropping the line when it reaches zero.
// Absent products are ignored.
func (c *Cart) Decrement(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[p.ID]
	if !ok {
		return
	}
	if line.Quantity > 1 {
		line.Quantity--
		return
	}
	c.removeLocked(p.ID)
}

// Remove drops the whole line for p, if any.
func (c *Cart) Remove(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(p.ID)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.lines = make(map[int64]*CartLine)
}

// TotalItemCount is the sum of all quantities, shown on the cart badge.
func (c *Cart) TotalItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

func (c *Cart) Quantity(productID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[productID]; ok {
		return line.Quantity
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Settle takes the quantities of an earlier Lines snapshot out of the cart.
// Units added after the snapshot stay; when nothing changed in between the
// cart ends up empty.
func (c *Cart) Settle(submitted []CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range submitted {
		line, ok := c.lines[s.Product.ID]
		if !ok {
			continue
		}
		if line.Quantity > s.Quantity {
			line.Quantity -= s.Quantity
			continue
		}
		c.removeLocked(s.Product.ID)
	}
}

// Lines returns a snapshot in insertion order. Later cart changes do not
// affect it.
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) removeLocked(productID int64) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
