package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "skirent/internal/domain/auth"
	domainuser "skirent/internal/domain/user"
)

// UserRepository keeps accounts in process memory. Email lookup goes
// through a lowercase index so login is case-insensitive, matching the
// persistent store.
type UserRepository struct {
	mu         sync.RWMutex
	users      map[domainuser.ID]*domainuser.User
	emailIndex map[string]domainuser.ID
}

var _ domainuser.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:      make(map[domainuser.ID]*domainuser.User),
		emailIndex: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emailIndex[emailKeyOf(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	user, ok := r.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return cloneUser(user), nil
}

// Save inserts or replaces the account. A different account already
// holding the email rejects the write.
func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	key := emailKeyOf(user.Email)
	if key == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.emailIndex[key]; ok && existing != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	r.emailIndex[key] = user.ID
	r.users[user.ID] = cloneUser(user)
	return nil
}

// ListAdmins returns every admin account sorted by ID. Confirmation
// notifications fan out to this list.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admins := make([]*domainuser.User, 0)
	for _, u := range r.users {
		if u.IsAdmin() {
			admins = append(admins, cloneUser(u))
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

func emailKeyOf(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &clone
}

// SessionStore keeps bearer sessions in memory. A per-user token index
// makes DeleteByUser cheap, which matters when an account gets blocked and
// every session has to go at once.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domainauth.Token]*domainauth.Session
	byUser   map[domainuser.ID]map[domainauth.Token]struct{}
}

var _ domainauth.SessionStore = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domainauth.Token]*domainauth.Session),
		byUser:   make(map[domainuser.ID]map[domainauth.Token]struct{}),
	}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = cloneSession(session)
	if s.byUser[session.UserID] == nil {
		s.byUser[session.UserID] = make(map[domainauth.Token]struct{})
	}
	s.byUser[session.UserID][session.Token] = struct{}{}
	return nil
}

// Get drops expired sessions lazily, so an expired token reads as not
// found.
func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil
	}
	delete(s.sessions, token)
	if index, ok := s.byUser[session.UserID]; ok {
		delete(index, token)
		if len(index) == 0 {
			delete(s.byUser, session.UserID)
		}
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token := range s.byUser[userID] {
		delete(s.sessions, token)
	}
	delete(s.byUser, userID)
	return nil
}

func cloneSession(s *domainauth.Session) *domainauth.Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Roles = append([]domainuser.Role(nil), s.Roles...)
	return &clone
}
