package server

// broadcastRoom fans a frame out to every member of a room. Members are
// re-resolved through the connection registry at delivery time since an
// identity can vanish between enqueue and delivery; offline members and
// full outbound queues are skipped, never reported to the caller.
func (co *Coordinator) broadcastRoom(room *Room, frame *ServerFrame) {
	for identity := range room.members {
		sess, ok := co.sessions[identity]
		if !ok {
			continue
		}
		sess.client.queueFrame(frame)
	}
}

// broadcastAll delivers a frame to every connected session.
func (co *Coordinator) broadcastAll(frame *ServerFrame) {
	for _, sess := range co.sessions {
		sess.client.queueFrame(frame)
	}
}

// handleSignal forwards a peer-connection negotiation payload to a single
// target session. The payload is an opaque blob produced and consumed by
// the clients' WebRTC stacks; it is relayed verbatim with the sender's
// identity attached, and silently dropped when the target is offline.
func (co *Coordinator) handleSignal(frame *ClientFrame) {
	if frame.Target == "" {
		return
	}

	target, ok := co.session(frame.Target)
	if !ok {
		return
	}

	target.client.queueFrame(signalFrame(frame.client.identity, frame.Payload))
	co.stats.Incr(statSignalsRelayed)
}
