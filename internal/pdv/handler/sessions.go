package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"sirius-system/internal/draft"
	"sirius-system/internal/erpclient"
)

var ErrSessionNotFound = errors.New("session not found")

// session binds one terminal to its draft controller and the ERP client
// carrying that terminal's credentials.
type session struct {
	ID         string
	Controller *draft.Controller
	ERP        *erpclient.Client
	CreatedAt  time.Time
}

type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: map[string]*session{},
	}
}

func (r *SessionRegistry) Add(controller *draft.Controller, erp *erpclient.Client) *session {
	s := &session{
		ID:         newSessionID(),
		Controller: controller,
		ERP:        erp,
		CreatedAt:  time.Now(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *SessionRegistry) Get(id string) (*session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
