package server

// Session is the live identity behind one connection, created by the hello
// frame and destroyed on disconnect. All fields are owned by the coordinator
// goroutine; the muted flag is process-wide, not room-scoped.
type Session struct {
	Identity   string
	Nickname   string
	Code       string
	AutoAccept bool
	Muted      bool

	client *Client
}

// session resolves an identity to its live session, if connected.
func (co *Coordinator) session(identity string) (*Session, bool) {
	sess, ok := co.sessions[identity]
	return sess, ok
}

// sessionByCode resolves a friend code to the identity currently holding it.
func (co *Coordinator) sessionByCode(code string) (*Session, bool) {
	identity, ok := co.codes[code]
	if !ok {
		return nil, false
	}
	return co.session(identity)
}

// online reports whether an identity currently has an open connection.
func (co *Coordinator) online(identity string) bool {
	_, ok := co.sessions[identity]
	return ok
}

// nickname resolves an identity's display name, empty when offline.
func (co *Coordinator) nickname(identity string) string {
	if sess, ok := co.sessions[identity]; ok {
		return sess.Nickname
	}
	return ""
}
