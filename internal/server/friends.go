package server

import (
	"sort"

	"github.com/npuzant/peerchat/internal/types"
)

// addFriendEdge inserts a one-directional edge. Acceptance always inserts
// both directions in the same handler, so the graph is symmetric once a
// request is accepted.
func (co *Coordinator) addFriendEdge(a, b string) {
	if co.friends[a] == nil {
		co.friends[a] = make(map[string]struct{})
	}
	co.friends[a][b] = struct{}{}
}

func (co *Coordinator) isFriend(a, b string) bool {
	_, ok := co.friends[a][b]
	return ok
}

// friendList resolves the identity's edges into list entries with online
// status. Nickname and code are only known while the friend is connected.
func (co *Coordinator) friendList(identity string) []types.Friend {
	edges := co.friends[identity]
	list := make([]types.Friend, 0, len(edges))
	for friend := range edges {
		entry := types.Friend{Identity: friend}
		if sess, ok := co.sessions[friend]; ok {
			entry.Nickname = sess.Nickname
			entry.Online = true
			entry.Code = sess.Code
		}
		list = append(list, entry)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Identity < list[j].Identity })
	return list
}

func (co *Coordinator) pendingList(identity string) []string {
	reqs := co.pending[identity]
	list := make([]string, 0, len(reqs))
	for requester := range reqs {
		list = append(list, requester)
	}

	sort.Strings(list)
	return list
}

// handleFriendRequest resolves the target by friend code. If the target
// auto-accepts, the mutual edge is created immediately; otherwise the
// request is queued on the target's pending set and the target is notified.
func (co *Coordinator) handleFriendRequest(frame *ClientFrame) {
	requester := frame.client.identity

	target, ok := co.sessionByCode(frame.TargetCode)
	if !ok {
		frame.client.queueFrame(errFrame("no connected user with that code"))
		return
	}

	if co.isFriend(requester, target.Identity) {
		frame.client.queueFrame(infoFrame("already friends"))
		return
	}

	if target.AutoAccept {
		co.addFriendEdge(requester, target.Identity)
		co.addFriendEdge(target.Identity, requester)
		frame.client.queueFrame(friendsFrame(co.friendList(requester)))
		target.client.queueFrame(friendsFrame(co.friendList(target.Identity)))
		return
	}

	if co.pending[target.Identity] == nil {
		co.pending[target.Identity] = make(map[string]struct{})
	}
	co.pending[target.Identity][requester] = struct{}{}

	sess, _ := co.session(requester)
	target.client.queueFrame(friendRequestFrame(sess.Identity, sess.Nickname, sess.Code))
	frame.client.queueFrame(infoFrame("request sent, awaiting approval"))
}

// handleFriendRespond settles a pending request. Without a matching pending
// entry the frame is a silent no-op. Either branch clears the entry and
// re-pushes the responder's pending list.
func (co *Coordinator) handleFriendRespond(frame *ClientFrame) {
	responder := frame.client.identity

	reqs := co.pending[responder]
	if _, ok := reqs[frame.FromIdentity]; !ok {
		return
	}
	delete(reqs, frame.FromIdentity)

	if frame.Accept {
		co.addFriendEdge(responder, frame.FromIdentity)
		co.addFriendEdge(frame.FromIdentity, responder)

		if requester, ok := co.session(frame.FromIdentity); ok {
			requester.client.queueFrame(friendsFrame(co.friendList(requester.Identity)))
		}
		frame.client.queueFrame(friendsFrame(co.friendList(responder)))
	} else {
		frame.client.queueFrame(infoFrame("request rejected"))
	}

	frame.client.queueFrame(friendPendingFrame(co.pendingList(responder)))
}

func (co *Coordinator) handleGetFriends(frame *ClientFrame) {
	frame.client.queueFrame(friendsFrame(co.friendList(frame.client.identity)))
}
