package server

import (
	"encoding/json"
	"time"

	"github.com/npuzant/peerchat/internal/types"
)

// Client to server frame types.
const (
	FrameHello         = "hello"
	FrameGetRooms      = "get-rooms"
	FrameCreateRoom    = "create-room"
	FrameJoinRoom      = "join-room"
	FrameLeaveRoom     = "leave-room"
	FramePromote       = "promote"
	FrameKick          = "kick"
	FrameMute          = "mute"
	FrameChatRoom      = "chat-room"
	FrameFriendRequest = "friend-request"
	FrameFriendRespond = "friend-respond"
	FrameGetFriends    = "get-friends"
	FrameSignal        = "signal"
)

// Server to client frame types. FrameChatRoom, FrameFriendRequest and
// FrameSignal are used in both directions.
const (
	FrameRooms         = "rooms"
	FrameFriends       = "friends"
	FrameFriendPending = "friend-pending"
	FrameRoomCreated   = "room-created"
	FrameRoomInvite    = "room-invite"
	FrameRoomPeers     = "room-peers"
	FrameRoomJoin      = "room-join"
	FrameRoomMembers   = "room-members"
	FrameRoomHistory   = "room-history"
	FramePeerLeft      = "peer-left"
	FrameSystem        = "system"
	FrameError         = "error"
	FrameInfo          = "info"
)

// ClientFrame is an inbound frame. The wire protocol is a flat JSON object
// discriminated by Type; fields not belonging to the tagged type are left at
// their zero values and ignored by the dispatcher.
type ClientFrame struct {
	Type string `json:"type"`

	// hello
	Identity   string `json:"identity,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	Code       string `json:"code,omitempty"`
	AutoAccept bool   `json:"autoAccept,omitempty"`

	// create-room
	IsPublic bool   `json:"isPublic,omitempty"`
	Name     string `json:"name,omitempty"`
	Id       string `json:"id,omitempty"`

	// room operations
	RoomId string     `json:"roomId,omitempty"`
	Target string     `json:"target,omitempty"`
	Role   types.Role `json:"role,omitempty"`
	Text   string     `json:"text,omitempty"`

	// friend graph
	TargetCode   string `json:"targetCode,omitempty"`
	FromIdentity string `json:"fromIdentity,omitempty"`
	Accept       bool   `json:"accept,omitempty"`

	// signal relay, never inspected
	Payload json.RawMessage `json:"payload,omitempty"`

	client *Client
}

// ServerFrame is an outbound frame, likewise flat and discriminated by Type.
type ServerFrame struct {
	Type     string              `json:"type"`
	Message  string              `json:"message,omitempty"`
	Text     string              `json:"text,omitempty"`
	RoomId   string              `json:"roomId,omitempty"`
	Id       string              `json:"id,omitempty"`
	Identity string              `json:"identity,omitempty"`
	From     string              `json:"from,omitempty"`
	Nickname string              `json:"nickname,omitempty"`
	Code     string              `json:"code,omitempty"`
	Ts       int64               `json:"ts,omitempty"`
	Room     *types.RoomSummary  `json:"room,omitempty"`
	Rooms    []types.RoomSummary `json:"rooms,omitempty"`
	Friends  []types.Friend      `json:"friends,omitempty"`
	Pending  []string            `json:"pending,omitempty"`
	Peers    []types.Peer        `json:"peers,omitempty"`
	Members  []types.Member      `json:"members,omitempty"`
	Messages []types.Message     `json:"messages,omitempty"`
	Payload  json.RawMessage     `json:"payload,omitempty"`
}

func errFrame(message string) *ServerFrame {
	return &ServerFrame{Type: FrameError, Message: message}
}

func infoFrame(message string) *ServerFrame {
	return &ServerFrame{Type: FrameInfo, Message: message}
}

func systemFrame(text string) *ServerFrame {
	return &ServerFrame{Type: FrameSystem, Text: text}
}

func roomsFrame(rooms []types.RoomSummary) *ServerFrame {
	return &ServerFrame{Type: FrameRooms, Rooms: rooms}
}

func friendsFrame(friends []types.Friend) *ServerFrame {
	return &ServerFrame{Type: FrameFriends, Friends: friends}
}

func friendPendingFrame(pending []string) *ServerFrame {
	return &ServerFrame{Type: FrameFriendPending, Pending: pending}
}

func friendRequestFrame(from, nickname, code string) *ServerFrame {
	return &ServerFrame{Type: FrameFriendRequest, From: from, Nickname: nickname, Code: code}
}

func roomCreatedFrame(room types.RoomSummary) *ServerFrame {
	return &ServerFrame{Type: FrameRoomCreated, Room: &room}
}

func roomInviteFrame(id string) *ServerFrame {
	return &ServerFrame{Type: FrameRoomInvite, Id: id}
}

func roomPeersFrame(roomId string, peers []types.Peer) *ServerFrame {
	return &ServerFrame{Type: FrameRoomPeers, RoomId: roomId, Peers: peers}
}

func roomJoinFrame(roomId, identity, nickname string) *ServerFrame {
	return &ServerFrame{Type: FrameRoomJoin, RoomId: roomId, Identity: identity, Nickname: nickname}
}

func roomMembersFrame(roomId string, members []types.Member) *ServerFrame {
	return &ServerFrame{Type: FrameRoomMembers, RoomId: roomId, Members: members}
}

func roomHistoryFrame(roomId string, messages []types.Message) *ServerFrame {
	return &ServerFrame{Type: FrameRoomHistory, RoomId: roomId, Messages: messages}
}

func peerLeftFrame(roomId, identity string) *ServerFrame {
	return &ServerFrame{Type: FramePeerLeft, RoomId: roomId, Identity: identity}
}

func chatRoomFrame(roomId, from, nickname, text string, ts time.Time) *ServerFrame {
	return &ServerFrame{
		Type:     FrameChatRoom,
		RoomId:   roomId,
		From:     from,
		Nickname: nickname,
		Text:     text,
		Ts:       ts.UnixMilli(),
	}
}

func signalFrame(from string, payload json.RawMessage) *ServerFrame {
	return &ServerFrame{Type: FrameSignal, From: from, Payload: payload}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
