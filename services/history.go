package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pedido-service/models"
	"pedido-service/utils"
)

type OrderHistoryStore interface {
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

// HistoryService lists the user's past orders and deletes them after an
// explicit confirmation. The displayed list is always re-read from the store.
type HistoryService struct {
	store   OrderHistoryStore
	session UserSource
	loc     *time.Location

	mu       sync.Mutex
	pending  *int64
	deleting bool
	entries  []models.OrderHistoryEntry
}

// NewHistoryService renders dates in loc; nil means UTC.
func NewHistoryService(store OrderHistoryStore, session UserSource, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryService{store: store, session: session, loc: loc}
}

// FetchHistory returns userID's orders newest first. No orders is an empty,
// non-nil slice.
func (s *HistoryService) FetchHistory(ctx context.Context, userID int64) ([]models.OrderHistoryEntry, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch order history: %w", err)
	}

	entries := make([]models.OrderHistoryEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, models.OrderHistoryEntry{
			OrderID: o.ID,
			Date:    utils.FormatOrderDate(o.CreatedAt, s.loc),
			Total:   utils.FormatPrice(o.Total),
		})
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return entries, nil
}

// Refresh fetches the history of the session user.
func (s *HistoryService) Refresh(ctx context.Context) ([]models.OrderHistoryEntry, error) {
	userID, ok := s.session.UserID()
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return s.FetchHistory(ctx, userID)
}

func (s *HistoryService) RefreshAsync(ctx context.Context) <-chan Result[[]models.OrderHistoryEntry] {
	return Async(ctx, s.Refresh)
}

// Entries is the list from the most recent successful fetch.
func (s *HistoryService) Entries() []models.OrderHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OrderHistoryEntry(nil), s.entries...)
}

// RequestDeletion stages orderID for deletion, replacing any staged order.
func (s *HistoryService) RequestDeletion(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := orderID
	s.pending = &id
}

func (s *HistoryService) CancelDeletion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *HistoryService) PendingDeletion() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return 0, false
	}
	return *s.pending, true
}

// ConfirmDeletion deletes the staged order and returns the re-fetched
// history. orderID must be the staged one. When the delete fails the order
// stays staged so the user can retry or cancel. A confirmation arriving while
// another one is still running fails with models.ErrConflict.
func (s *HistoryService) ConfirmDeletion(ctx context.Context, orderID int64) ([]models.OrderHistoryEntry, error) {
	s.mu.Lock()
	if s.pending == nil || *s.pending != orderID {
		s.mu.Unlock()
		return nil, models.ErrNoPendingDeletion
	}
	if s.deleting {
		s.mu.Unlock()
		return nil, models.ErrConflict
	}
	s.deleting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.deleting = false
		s.mu.Unlock()
	}()

	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		log.Printf("history: delete order %d failed: %v", orderID, err)
		return nil, err
	}

	s.mu.Lock()
	if s.pending != nil && *s.pending == orderID {
		s.pending = nil
	}
	s.mu.Unlock()

	entries, err := s.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("order %d deleted, reloading history: %w", orderID, err)
	}
	return entries, nil
}

func (s *HistoryService) ConfirmDeletionAsync(ctx context.Context, orderID int64) <-chan Result[[]models.OrderHistoryEntry] {
	return Async(ctx, func(ctx context.Context) ([]models.OrderHistoryEntry, error) {
		return s.ConfirmDeletion(ctx, orderID)
	})
}
