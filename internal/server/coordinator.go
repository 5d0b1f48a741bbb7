package server

import (
	"context"
	"log"
	"time"

	"github.com/npuzant/peerchat/internal/stats"
)

// Metric names registered with the stats provider.
const (
	statActiveConnections = "NumActiveConnections"
	statRooms             = "NumRooms"
	statMessages          = "NumMessages"
	statSignalsRelayed    = "NumSignalsRelayed"
)

type stopReq struct {
	done chan struct{}
}

// Coordinator owns all shared state: the connection registry, code
// directory, friend graph, room directory and message history. A single
// goroutine started by Run processes every inbound frame, registration,
// disconnect and retention sweep, so no two handlers ever interleave their
// reads and writes of that state.
type Coordinator struct {
	log   *log.Logger
	stats stats.StatsProvider

	inbox        chan *ClientFrame
	RegisterChan chan *Client
	deregister   chan *Client
	stop         chan stopReq
	done         chan struct{}

	sweepInterval time.Duration

	clients  map[*Client]struct{}
	sessions map[string]*Session
	codes    map[string]string
	friends  map[string]map[string]struct{}
	pending  map[string]map[string]struct{}
	rooms    map[string]*Room
	history  *HistoryStore
}

func NewCoordinator(logger *log.Logger, su stats.StatsProvider, retention, sweepInterval time.Duration) (*Coordinator, error) {
	co := &Coordinator{
		log:           logger,
		stats:         su,
		inbox:         make(chan *ClientFrame, 256),
		RegisterChan:  make(chan *Client),
		deregister:    make(chan *Client),
		stop:          make(chan stopReq),
		done:          make(chan struct{}),
		sweepInterval: sweepInterval,
		clients:       make(map[*Client]struct{}),
		sessions:      make(map[string]*Session),
		codes:         make(map[string]string),
		friends:       make(map[string]map[string]struct{}),
		pending:       make(map[string]map[string]struct{}),
		rooms:         make(map[string]*Room),
		history:       NewHistoryStore(retention),
	}

	for _, name := range []string{
		statActiveConnections,
		statRooms,
		statMessages,
		statSignalsRelayed,
	} {
		co.stats.RegisterMetric(name)
	}

	co.seedPublicRooms()

	return co, nil
}

func (co *Coordinator) Run() {
	sweep := time.NewTicker(co.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case client := <-co.RegisterChan:
			co.addClient(client)
		case client := <-co.deregister:
			co.removeClient(client)
		case frame := <-co.inbox:
			co.dispatch(frame)
		case <-sweep.C:
			co.history.Sweep(Now())
		case req := <-co.stop:
			co.log.Println("stopping coordinator")
			for client := range co.clients {
				client.stopClient()
			}
			close(co.done)
			close(req.done)
			return
		}
	}
}

// Shutdown stops the coordinator loop and closes every client connection.
func (co *Coordinator) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case co.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterClient hands a freshly upgraded connection to the coordinator.
func (co *Coordinator) RegisterClient(c *Client) {
	select {
	case co.RegisterChan <- c:
	case <-co.done:
	}
}

// DeRegisterClient runs disconnect cleanup for a closed connection.
func (co *Coordinator) DeRegisterClient(c *Client) {
	select {
	case co.deregister <- c:
	case <-co.done:
	}
}

// dispatch routes one inbound frame by its type tag. Only hello is legal
// before a session exists; everything else from an unknown connection is
// dropped. Unrecognized types are likewise dropped without response.
func (co *Coordinator) dispatch(frame *ClientFrame) {
	if frame.Type == FrameHello {
		co.handleHello(frame)
		return
	}

	c := frame.client
	if c == nil || c.identity == "" || !co.online(c.identity) {
		co.log.Printf("dropping %q frame from connection without session", frame.Type)
		return
	}

	switch frame.Type {
	case FrameGetRooms:
		co.handleGetRooms(frame)
	case FrameCreateRoom:
		co.handleCreateRoom(frame)
	case FrameJoinRoom:
		co.handleJoinRoom(frame)
	case FrameLeaveRoom:
		co.handleLeaveRoom(frame)
	case FramePromote:
		co.handlePromote(frame)
	case FrameKick:
		co.handleKick(frame)
	case FrameMute:
		co.handleMute(frame)
	case FrameChatRoom:
		co.handleChatRoom(frame)
	case FrameFriendRequest:
		co.handleFriendRequest(frame)
	case FrameFriendRespond:
		co.handleFriendRespond(frame)
	case FrameGetFriends:
		co.handleGetFriends(frame)
	case FrameSignal:
		co.handleSignal(frame)
	default:
		co.log.Printf("dropping frame with unknown type %q", frame.Type)
	}
}

// handleHello records the session, publishes its friend code and pushes the
// three state snapshots every new session starts from: public rooms, the
// resolved friend list and pending requests addressed to it. A duplicate
// hello simply overwrites the previous registration.
func (co *Coordinator) handleHello(frame *ClientFrame) {
	c := frame.client
	if frame.Identity == "" {
		co.log.Println("dropping hello frame without identity")
		return
	}

	sess := &Session{
		Identity:   frame.Identity,
		Nickname:   frame.Nickname,
		Code:       frame.Code,
		AutoAccept: frame.AutoAccept,
		client:     c,
	}

	c.identity = frame.Identity
	co.sessions[frame.Identity] = sess
	if frame.Code != "" {
		co.codes[frame.Code] = frame.Identity
	}

	co.log.Printf("session %q connected as %q", sess.Identity, sess.Nickname)

	c.queueFrame(roomsFrame(co.publicRoomSummaries()))
	c.queueFrame(friendsFrame(co.friendList(sess.Identity)))
	c.queueFrame(friendPendingFrame(co.pendingList(sess.Identity)))
}

func (co *Coordinator) addClient(c *Client) {
	co.clients[c] = struct{}{}
	co.stats.Incr(statActiveConnections)
}

// removeClient runs full disconnect cleanup: the session and its code are
// removed, and every room the identity belonged to sees a departure notice
// and a refreshed member list.
func (co *Coordinator) removeClient(c *Client) {
	if _, ok := co.clients[c]; !ok {
		return
	}
	delete(co.clients, c)
	co.stats.Decr(statActiveConnections)

	if c.identity == "" {
		return
	}

	sess, ok := co.sessions[c.identity]
	if !ok || sess.client != c {
		// a newer connection already took over this identity
		return
	}

	co.log.Printf("session %q disconnected", sess.Identity)

	delete(co.sessions, sess.Identity)
	if sess.Code != "" && co.codes[sess.Code] == sess.Identity {
		delete(co.codes, sess.Code)
	}

	for _, room := range co.rooms {
		if _, ok := room.members[sess.Identity]; !ok {
			continue
		}
		delete(room.members, sess.Identity)
		co.broadcastRoom(room, peerLeftFrame(room.Id, sess.Identity))
		co.broadcastRoom(room, roomMembersFrame(room.Id, co.memberList(room)))
	}
}
