package bank

// Session is the authenticated identity threaded through every service call.
// It is a plain value: the HTTP layer rebuilds it per request from the bearer
// token, tests construct it directly.
type Session struct {
	TokenID  string
	UserID   string
	Username string
	Admin    bool
}

// requireSession verifies that s identifies a live, non-revoked session.
func (s *Service) requireSession(sess *Session) error {
	if sess == nil || sess.UserID == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	_, revoked := s.revoked[sess.TokenID]
	s.mu.Unlock()
	if revoked {
		return ErrNoSession
	}
	return nil
}

// requireAdmin verifies a live session carrying the admin flag.
func (s *Service) requireAdmin(sess *Session) error {
	if err := s.requireSession(sess); err != nil {
		return err
	}
	if !sess.Admin {
		return ErrAdminOnly
	}
	return nil
}
