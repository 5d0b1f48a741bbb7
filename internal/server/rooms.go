package server

import (
	"sort"

	"github.com/npuzant/peerchat/internal/types"
	"github.com/teris-io/shortid"
)

// publicRoomIdPrefix marks ids of rooms listed to everyone. Private room
// ids carry no prefix; the id doubles as the invite code.
const publicRoomIdPrefix = "PUB"

// Room is an entry in the room directory. Members are held by identity and
// resolved through the connection registry at delivery time; roles outlive
// both membership and the member's connection. Rooms are never deleted.
type Room struct {
	Id     string
	Name   string
	Public bool

	members map[string]struct{}
	roles   map[string]types.Role
}

func newRoom(id, name string, public bool) *Room {
	return &Room{
		Id:      id,
		Name:    name,
		Public:  public,
		members: make(map[string]struct{}),
		roles:   make(map[string]types.Role),
	}
}

// role returns the member's role, defaulting to user.
func (r *Room) role(identity string) types.Role {
	if role, ok := r.roles[identity]; ok {
		return role
	}
	return types.RoleUser
}

func (r *Room) isAdmin(identity string) bool {
	return r.roles[identity] == types.RoleAdmin
}

func (r *Room) isModOrAdmin(identity string) bool {
	role := r.roles[identity]
	return role == types.RoleAdmin || role == types.RoleMod
}

// seedPublicRooms guarantees the invariant that at least one public room
// exists at all times.
func (co *Coordinator) seedPublicRooms() {
	seeds := []struct {
		id   string
		name string
	}{
		{"PUB1", "General"},
		{"PUB2", "Programming"},
		{"PUB3", "Music"},
	}

	for _, seed := range seeds {
		co.rooms[seed.id] = newRoom(seed.id, seed.name, true)
		co.stats.Incr(statRooms)
	}
}

// newRoomId allocates an unused room id, retrying on the rare collision.
func (co *Coordinator) newRoomId(prefix string) string {
	for {
		id := prefix + shortid.MustGenerate()
		if _, ok := co.rooms[id]; !ok {
			return id
		}
	}
}

func (co *Coordinator) publicRoomSummaries() []types.RoomSummary {
	summaries := make([]types.RoomSummary, 0, len(co.rooms))
	for _, room := range co.rooms {
		if !room.Public {
			continue
		}
		summaries = append(summaries, types.RoomSummary{
			Id:    room.Id,
			Name:  room.Name,
			Count: len(room.members),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Id < summaries[j].Id })
	return summaries
}

func (co *Coordinator) memberList(room *Room) []types.Member {
	members := make([]types.Member, 0, len(room.members))
	for identity := range room.members {
		members = append(members, types.Member{
			Identity: identity,
			Nickname: co.nickname(identity),
			Role:     room.role(identity),
		})
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Identity < members[j].Identity })
	return members
}

func (co *Coordinator) handleGetRooms(frame *ClientFrame) {
	frame.client.queueFrame(roomsFrame(co.publicRoomSummaries()))
}

// handleCreateRoom allocates the room and makes the creator its admin.
// Public rooms are announced to every connected session; private rooms hand
// the creator the invite id instead.
func (co *Coordinator) handleCreateRoom(frame *ClientFrame) {
	var id string
	if frame.IsPublic {
		id = co.newRoomId(publicRoomIdPrefix)
	} else if frame.Id != "" {
		if _, ok := co.rooms[frame.Id]; ok {
			frame.client.queueFrame(errFrame("room id already in use"))
			return
		}
		id = frame.Id
	} else {
		id = co.newRoomId("")
	}

	name := frame.Name
	if name == "" {
		name = id
	}

	room := newRoom(id, name, frame.IsPublic)
	co.rooms[id] = room
	co.stats.Incr(statRooms)

	creator := frame.client.identity
	room.members[creator] = struct{}{}
	room.roles[creator] = types.RoleAdmin

	co.log.Printf("session %q created room %q (public=%t)", creator, id, room.Public)

	frame.client.queueFrame(roomCreatedFrame(types.RoomSummary{
		Id:       room.Id,
		Name:     room.Name,
		Count:    len(room.members),
		IsPublic: room.Public,
	}))

	if room.Public {
		co.broadcastAll(roomsFrame(co.publicRoomSummaries()))
	} else {
		frame.client.queueFrame(roomInviteFrame(room.Id))
	}

	frame.client.queueFrame(roomMembersFrame(room.Id, co.memberList(room)))
}

// handleJoinRoom adds the caller as a member. The joiner gets the peer list
// for signaling handshakes plus the retained history; everyone in the room,
// joiner included, gets the join notice and a refreshed member list.
func (co *Coordinator) handleJoinRoom(frame *ClientFrame) {
	room, ok := co.rooms[frame.RoomId]
	if !ok {
		frame.client.queueFrame(errFrame("room not found"))
		return
	}

	identity := frame.client.identity
	room.members[identity] = struct{}{}
	if _, ok := room.roles[identity]; !ok {
		room.roles[identity] = types.RoleUser
	}

	peers := make([]types.Peer, 0, len(room.members)-1)
	for member := range room.members {
		if member == identity {
			continue
		}
		peers = append(peers, types.Peer{Identity: member, Nickname: co.nickname(member)})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Identity < peers[j].Identity })

	frame.client.queueFrame(roomPeersFrame(room.Id, peers))
	frame.client.queueFrame(roomHistoryFrame(room.Id, co.history.Recent(room.Id, historyReplayLimit)))

	co.broadcastRoom(room, roomJoinFrame(room.Id, identity, co.nickname(identity)))
	co.broadcastRoom(room, roomMembersFrame(room.Id, co.memberList(room)))
}

func (co *Coordinator) handleLeaveRoom(frame *ClientFrame) {
	room, ok := co.rooms[frame.RoomId]
	if !ok {
		return
	}

	identity := frame.client.identity
	if _, ok := room.members[identity]; !ok {
		return
	}
	delete(room.members, identity)

	co.broadcastRoom(room, peerLeftFrame(room.Id, identity))
	co.broadcastRoom(room, roomMembersFrame(room.Id, co.memberList(room)))
}

// handlePromote changes a member's role. Only an admin may promote, and a
// role outside the known set is silently ignored.
func (co *Coordinator) handlePromote(frame *ClientFrame) {
	room, ok := co.rooms[frame.RoomId]
	if !ok {
		frame.client.queueFrame(errFrame("room not found"))
		return
	}

	if !room.isAdmin(frame.client.identity) {
		frame.client.queueFrame(errFrame("not authorized"))
		return
	}

	if !frame.Role.Valid() {
		return
	}

	room.roles[frame.Target] = frame.Role
	co.broadcastRoom(room, roomMembersFrame(room.Id, co.memberList(room)))
}

// handleKick removes the target from the room and forcibly closes its
// connection. This is the only frame handler allowed to terminate a
// connection.
func (co *Coordinator) handleKick(frame *ClientFrame) {
	room, ok := co.rooms[frame.RoomId]
	if !ok {
		return
	}

	if !room.isModOrAdmin(frame.client.identity) {
		frame.client.queueFrame(errFrame("not authorized"))
		return
	}

	target, ok := co.session(frame.Target)
	if !ok {
		return
	}

	target.client.queueFrame(systemFrame("You were kicked from " + room.Id))
	delete(room.members, target.Identity)
	target.client.stopClient()

	co.broadcastRoom(room, roomMembersFrame(room.Id, co.memberList(room)))
}

// handleMute sets the target session's mute flag. The flag is process-wide:
// a muted session cannot post in any room until it reconnects.
func (co *Coordinator) handleMute(frame *ClientFrame) {
	room, ok := co.rooms[frame.RoomId]
	if !ok {
		return
	}

	if !room.isModOrAdmin(frame.client.identity) {
		frame.client.queueFrame(errFrame("not authorized"))
		return
	}

	target, ok := co.session(frame.Target)
	if !ok {
		return
	}

	target.Muted = true
	target.client.queueFrame(systemFrame("You were muted in " + room.Id))

	co.broadcastRoom(room, roomMembersFrame(room.Id, co.memberList(room)))
}
