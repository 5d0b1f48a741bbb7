package server

import (
	"strings"
	"testing"

	"github.com/npuzant/peerchat/internal/stats"
	"github.com/npuzant/peerchat/internal/types"
	"github.com/stretchr/testify/assert"
)

func Test_handleCreateRoom(t *testing.T) {
	t.Run("public room", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)
		bob := connect(t, co, "bob", "Bob", "EF34GH", false)

		co.handleCreateRoom(&ClientFrame{
			Type:     FrameCreateRoom,
			IsPublic: true,
			Name:     "X",
			client:   alice,
		})

		created := recvFrameOfType(alice, FrameRoomCreated)
		assert.NotNil(t, created, "expected room-created confirmation")
		assert.NotNil(t, created.Room, "expected room summary in confirmation")
		assert.Equal(t, "X", created.Room.Name, "expected room name to match")
		assert.True(t, created.Room.IsPublic, "expected room to be public")
		assert.True(t, strings.HasPrefix(created.Room.Id, publicRoomIdPrefix), "expected generated public room id")

		room := co.rooms[created.Room.Id]
		assert.NotNil(t, room, "expected room in directory")
		assert.Contains(t, room.members, "alice", "expected creator to be a member")
		assert.Equal(t, types.RoleAdmin, room.role("alice"), "expected creator to be admin")

		// every connected session gets a refreshed public room list
		rooms := recvFrameOfType(bob, FrameRooms)
		assert.NotNil(t, rooms, "expected rooms push to other sessions")
		var found *types.RoomSummary
		for i := range rooms.Rooms {
			if rooms.Rooms[i].Id == created.Room.Id {
				found = &rooms.Rooms[i]
			}
		}
		assert.NotNil(t, found, "expected new room in the listing")
		assert.Equal(t, 1, found.Count, "expected member count of 1")

		members := recvFrameOfType(alice, FrameRoomMembers)
		assert.NotNil(t, members, "expected member list for creator")
		assert.Len(t, members.Members, 1, "expected creator as sole member")
	})

	t.Run("private room with caller-supplied id", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)
		bob := connect(t, co, "bob", "Bob", "EF34GH", false)

		co.handleCreateRoom(&ClientFrame{
			Type:   FrameCreateRoom,
			Name:   "secret",
			Id:     "INVITE1",
			client: alice,
		})

		created := recvFrameOfType(alice, FrameRoomCreated)
		assert.NotNil(t, created, "expected room-created confirmation")
		assert.Equal(t, "INVITE1", created.Room.Id, "expected caller-supplied id")
		assert.False(t, created.Room.IsPublic, "expected private room")

		invite := recvFrameOfType(alice, FrameRoomInvite)
		assert.NotNil(t, invite, "expected invite id for private room")
		assert.Equal(t, "INVITE1", invite.Id, "expected invite id to be the room id")

		assert.Nil(t, recvFrameOfType(bob, FrameRooms), "expected no rooms push for private creation")

		// private rooms never appear in any rooms listing
		for _, summary := range co.publicRoomSummaries() {
			assert.NotEqual(t, "INVITE1", summary.Id, "expected private room to be unlisted")
		}
	})

	t.Run("private room without id gets one generated", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)

		co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, Name: "secret", client: alice})

		invite := recvFrameOfType(alice, FrameRoomInvite)
		assert.NotNil(t, invite, "expected invite id")
		assert.NotEmpty(t, invite.Id, "expected generated invite id")
	})

	t.Run("id collision is rejected", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)

		co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, Id: "DUPL", client: alice})
		drainFrames(alice)
		co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, Id: "DUPL", client: alice})

		frame := recvFrame(alice)
		assert.NotNil(t, frame, "expected a response")
		assert.Equal(t, FrameError, frame.Type, "expected error frame for reused id")
	})
}

func Test_handleJoinRoom(t *testing.T) {
	t.Run("join unknown room", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)

		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "nope", client: alice})

		frame := recvFrame(alice)
		assert.NotNil(t, frame, "expected a response")
		assert.Equal(t, FrameError, frame.Type, "expected error frame")
		assert.Equal(t, "room not found", frame.Message, "expected room not found message")
	})

	t.Run("joiner receives peers, history and members", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)
		bob := connect(t, co, "bob", "Bob", "EF34GH", false)

		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: alice})
		co.handleChatRoom(&ClientFrame{Type: FrameChatRoom, RoomId: "PUB1", Text: "hi", client: alice})
		drainFrames(alice)

		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: bob})

		peers := recvFrameOfType(bob, FrameRoomPeers)
		assert.NotNil(t, peers, "expected peer list for joiner")
		assert.Len(t, peers.Peers, 1, "expected one existing peer")
		assert.Equal(t, "alice", peers.Peers[0].Identity, "expected alice as existing peer")
		assert.Equal(t, "Alice", peers.Peers[0].Nickname, "expected resolved nickname")

		history := recvFrameOfType(bob, FrameRoomHistory)
		assert.NotNil(t, history, "expected history replay for joiner")
		assert.Len(t, history.Messages, 1, "expected one retained message")
		assert.Equal(t, "hi", history.Messages[0].Text, "expected retained message text")

		join := recvFrameOfType(bob, FrameRoomJoin)
		assert.NotNil(t, join, "expected join notice to joiner too")
		assert.Equal(t, "bob", join.Identity, "expected join notice to name the joiner")

		members := recvFrameOfType(bob, FrameRoomMembers)
		assert.NotNil(t, members, "expected refreshed member list")
		assert.Len(t, members.Members, 2, "expected both members listed")

		// existing member gets notice and refreshed list as well
		assert.NotNil(t, recvFrameOfType(alice, FrameRoomJoin), "expected join notice to existing members")
	})

	t.Run("rejoin keeps elevated role", func(t *testing.T) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		alice := connect(t, co, "alice", "Alice", "AB12CD", false)

		room := co.rooms["PUB1"]
		room.roles["alice"] = types.RoleMod

		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: alice})
		assert.Equal(t, types.RoleMod, room.role("alice"), "expected elevated role to survive rejoin")
	})
}

func Test_handleLeaveRoom(t *testing.T) {
	co := newTestCoordinator(t, &stats.MockStatsUpdater{})
	alice := connect(t, co, "alice", "Alice", "AB12CD", false)
	bob := connect(t, co, "bob", "Bob", "EF34GH", false)

	co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: alice})
	co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: bob})
	drainFrames(alice)
	drainFrames(bob)

	co.handleLeaveRoom(&ClientFrame{Type: FrameLeaveRoom, RoomId: "PUB1", client: alice})

	assert.NotContains(t, co.rooms["PUB1"].members, "alice", "expected membership to be removed")

	left := recvFrameOfType(bob, FramePeerLeft)
	assert.NotNil(t, left, "expected departure notice")
	assert.Equal(t, "alice", left.Identity, "expected departure notice to name the leaver")

	members := recvFrameOfType(bob, FrameRoomMembers)
	assert.NotNil(t, members, "expected refreshed member list")
	assert.Len(t, members.Members, 1, "expected one remaining member")

	// leaving a room twice, or an unknown room, is a no-op
	co.handleLeaveRoom(&ClientFrame{Type: FrameLeaveRoom, RoomId: "PUB1", client: alice})
	co.handleLeaveRoom(&ClientFrame{Type: FrameLeaveRoom, RoomId: "nope", client: alice})
	assert.Nil(t, recvFrame(alice), "expected no response to no-op leave")
}

func Test_handlePromote(t *testing.T) {
	setup := func(t *testing.T) (*Coordinator, *Client, *Client, *Room) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		admin := connect(t, co, "admin", "Admin", "AD11AA", false)
		user := connect(t, co, "user", "User", "US22BB", false)

		co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, IsPublic: true, Name: "X", client: admin})
		created := recvFrameOfType(admin, FrameRoomCreated)
		room := co.rooms[created.Room.Id]

		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: room.Id, client: user})
		drainFrames(admin)
		drainFrames(user)
		return co, admin, user, room
	}

	t.Run("admin promotes member", func(t *testing.T) {
		co, admin, _, room := setup(t)

		co.handlePromote(&ClientFrame{
			Type:   FramePromote,
			RoomId: room.Id,
			Target: "user",
			Role:   types.RoleMod,
			client: admin,
		})

		assert.Equal(t, types.RoleMod, room.role("user"), "expected target role to be updated")

		members := recvFrameOfType(admin, FrameRoomMembers)
		assert.NotNil(t, members, "expected member list broadcast after promote")
	})

	t.Run("non-admin cannot promote", func(t *testing.T) {
		co, _, user, room := setup(t)

		co.handlePromote(&ClientFrame{
			Type:   FramePromote,
			RoomId: room.Id,
			Target: "admin",
			Role:   types.RoleUser,
			client: user,
		})

		frame := recvFrame(user)
		assert.NotNil(t, frame, "expected a response")
		assert.Equal(t, FrameError, frame.Type, "expected error frame")
		assert.Equal(t, types.RoleAdmin, room.role("admin"), "expected state to be unchanged")
	})

	t.Run("unknown role is silently ignored", func(t *testing.T) {
		co, admin, user, room := setup(t)

		co.handlePromote(&ClientFrame{
			Type:   FramePromote,
			RoomId: room.Id,
			Target: "user",
			Role:   "owner",
			client: admin,
		})

		assert.Equal(t, types.RoleUser, room.role("user"), "expected role to be unchanged")
		assert.Nil(t, recvFrame(admin), "expected no response for ignored role")
		assert.Nil(t, recvFrame(user), "expected no broadcast for ignored role")
	})

	t.Run("unknown room", func(t *testing.T) {
		co, admin, _, _ := setup(t)

		co.handlePromote(&ClientFrame{
			Type:   FramePromote,
			RoomId: "nope",
			Target: "user",
			Role:   types.RoleMod,
			client: admin,
		})

		frame := recvFrame(admin)
		assert.NotNil(t, frame, "expected a response")
		assert.Equal(t, FrameError, frame.Type, "expected error frame")
	})
}

func Test_handleKick(t *testing.T) {
	setup := func(t *testing.T) (*Coordinator, *Client, *Client, *Room) {
		co := newTestCoordinator(t, &stats.MockStatsUpdater{})
		admin := connect(t, co, "admin", "Admin", "AD11AA", false)
		target := connect(t, co, "target", "Target", "TG33CC", false)

		co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, IsPublic: true, Name: "X", client: admin})
		created := recvFrameOfType(admin, FrameRoomCreated)
		room := co.rooms[created.Room.Id]

		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: room.Id, client: target})
		drainFrames(admin)
		drainFrames(target)
		return co, admin, target, room
	}

	t.Run("admin kicks member", func(t *testing.T) {
		co, admin, target, room := setup(t)

		co.handleKick(&ClientFrame{
			Type:   FrameKick,
			RoomId: room.Id,
			Target: "target",
			client: admin,
		})

		assert.NotContains(t, room.members, "target", "expected target to be removed from room")

		system := recvFrameOfType(target, FrameSystem)
		assert.NotNil(t, system, "expected system notice to kicked member")
		assert.Contains(t, system.Text, "kicked", "expected notice to say kicked")

		select {
		case <-target.stop:
			// connection forcibly closed
		default:
			t.Error("expected target connection to be stopped")
		}

		members := recvFrameOfType(admin, FrameRoomMembers)
		assert.NotNil(t, members, "expected member list broadcast after kick")
		assert.Len(t, members.Members, 1, "expected only admin to remain")
	})

	t.Run("plain member cannot kick", func(t *testing.T) {
		co, admin, target, room := setup(t)

		co.handleKick(&ClientFrame{
			Type:   FrameKick,
			RoomId: room.Id,
			Target: "admin",
			client: target,
		})

		frame := recvFrame(target)
		assert.NotNil(t, frame, "expected a response")
		assert.Equal(t, FrameError, frame.Type, "expected error frame")
		assert.Contains(t, room.members, "admin", "expected admin to remain a member")

		select {
		case <-admin.stop:
			t.Error("expected admin connection to stay open")
		default:
		}
	})

	t.Run("mod can kick", func(t *testing.T) {
		co, admin, target, room := setup(t)
		mod := connect(t, co, "mod", "Mod", "MO44DD", false)
		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: room.Id, client: mod})
		room.roles["mod"] = types.RoleMod
		drainFrames(admin)
		drainFrames(mod)
		drainFrames(target)

		co.handleKick(&ClientFrame{
			Type:   FrameKick,
			RoomId: room.Id,
			Target: "target",
			client: mod,
		})

		assert.NotContains(t, room.members, "target", "expected mod to be allowed to kick")
	})

	t.Run("offline target is a no-op", func(t *testing.T) {
		co, admin, _, room := setup(t)

		co.handleKick(&ClientFrame{
			Type:   FrameKick,
			RoomId: room.Id,
			Target: "ghost",
			client: admin,
		})

		assert.Nil(t, recvFrame(admin), "expected no response for offline target")
	})
}

func Test_handleMute(t *testing.T) {
	co := newTestCoordinator(t, &stats.MockStatsUpdater{})
	admin := connect(t, co, "admin", "Admin", "AD11AA", false)
	target := connect(t, co, "target", "Target", "TG33CC", false)

	co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, IsPublic: true, Name: "X", client: admin})
	created := recvFrameOfType(admin, FrameRoomCreated)
	room := co.rooms[created.Room.Id]

	co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: room.Id, client: target})
	drainFrames(admin)
	drainFrames(target)

	t.Run("plain member cannot mute", func(t *testing.T) {
		co.handleMute(&ClientFrame{
			Type:   FrameMute,
			RoomId: room.Id,
			Target: "admin",
			client: target,
		})

		frame := recvFrame(target)
		assert.NotNil(t, frame, "expected a response")
		assert.Equal(t, FrameError, frame.Type, "expected error frame")
	})

	t.Run("admin mutes member", func(t *testing.T) {
		co.handleMute(&ClientFrame{
			Type:   FrameMute,
			RoomId: room.Id,
			Target: "target",
			client: admin,
		})

		sess, _ := co.session("target")
		assert.True(t, sess.Muted, "expected mute flag to be set")

		system := recvFrameOfType(target, FrameSystem)
		assert.NotNil(t, system, "expected system notice to muted member")
		assert.Contains(t, system.Text, "muted", "expected notice to say muted")
	})

	t.Run("muted member cannot post anywhere", func(t *testing.T) {
		drainFrames(admin)
		drainFrames(target)

		// the mute flag is process-wide, so another room is affected too
		co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: target})
		drainFrames(target)

		co.handleChatRoom(&ClientFrame{Type: FrameChatRoom, RoomId: "PUB1", Text: "hi", client: target})

		assert.Nil(t, recvFrameOfType(target, FrameChatRoom), "expected no chat broadcast from muted sender")
		assert.Empty(t, co.history.Recent("PUB1", historyReplayLimit), "expected no message to be recorded")
	})
}

func Test_publicRoomSummaries(t *testing.T) {
	co := newTestCoordinator(t, &stats.MockStatsUpdater{})
	alice := connect(t, co, "alice", "Alice", "AB12CD", false)

	co.handleJoinRoom(&ClientFrame{Type: FrameJoinRoom, RoomId: "PUB1", client: alice})
	co.handleCreateRoom(&ClientFrame{Type: FrameCreateRoom, Id: "HIDDEN", client: alice})

	summaries := co.publicRoomSummaries()
	assert.Len(t, summaries, 3, "expected only the seeded public rooms")
	assert.Equal(t, "PUB1", summaries[0].Id, "expected sorted summaries")
	assert.Equal(t, 1, summaries[0].Count, "expected member count to be included")
}
