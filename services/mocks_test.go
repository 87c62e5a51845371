package services

import (
	"context"
	"sync"

	"pedido-service/models"
)

type mockOrderStore struct {
	m       sync.Mutex
	err     error
	nextID  int64
	drafts  []models.OrderDraft
	orders  []models.Order
	deleted []int64
	block   chan struct{} // when set, CreateOrder waits on it
	started chan struct{}
}

func (s *mockOrderStore) CreateOrder(_ context.Context, draft models.OrderDraft) (models.Order, error) {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.m.Lock()
	defer s.m.Unlock()
	s.drafts = append(s.drafts, draft)
	if s.err != nil {
		return models.Order{}, s.err
	}
	s.nextID++
	return models.Order{ID: s.nextID, UserID: draft.UserID, Total: draft.Total, Lines: draft.Lines}, nil
}

func (s *mockOrderStore) ListOrdersByUser(_ context.Context, userID int64) ([]models.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *mockOrderStore) DeleteOrder(_ context.Context, orderID int64) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	for i, o := range s.orders {
		if o.ID == orderID {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			s.deleted = append(s.deleted, orderID)
			return nil
		}
	}
	return models.ErrOrderNotFound
}

func (s *mockOrderStore) setErr(err error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.err = err
}

func loggedIn(userID int64) *Session {
	s := NewSession()
	s.Login(UserData{ID: userID, Name: "Viviana", Address: "Calle Ejemplo 123"}, "token")
	return s
}
