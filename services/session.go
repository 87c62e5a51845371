package services

import (
	"log"
	"sync"
)

type UserData struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"telefonoContacto"`
}

// Session holds the signed-in user. It is created once per client and passed
// to the services that need the current identity; those services only read it.
type Session struct {
	mu    sync.RWMutex
	user  *UserData
	token string
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Login(user UserData, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
	s.token = token
	log.Printf("session: user %d logged in", user.ID)
}

func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		log.Printf("session: user %d logged out", s.user.ID)
	}
	s.user = nil
	s.token = ""
}

func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) Current() (UserData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return UserData{}, false
	}
	return *s.user, true
}

func (s *Session) UserID() (int64, bool) {
	u, ok := s.Current()
	return u.ID, ok
}

func (s *Session) Name() string    { u, _ := s.Current(); return u.Name }
func (s *Session) Email() string   { u, _ := s.Current(); return u.Email }
func (s *Session) Address() string { u, _ := s.Current(); return u.Address }
func (s *Session) Phone() string   { u, _ := s.Current(); return u.Phone }

// Token is the bearer token for the order store, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
