package bus

import "time"

// Event kinds published inside the daemon. Subscribers filter by the prefix
// before the first dot ("conn.", "push.", "store.", ...).
const (
	KindConnState     = "conn.state_changed"
	KindReachability  = "conn.reachability"
	KindPushNewMsg    = "push.new_message"
	KindPushMsgSent   = "push.message_sent"
	KindStoreChanged  = "store.changed"
	KindViewReveal    = "view.reveal"
	KindPollCompleted = "sync.poll_completed"
	KindPollFailed    = "sync.poll_failed"
	KindSendFailed    = "outbox.send_failed"
	KindLateAck       = "outbox.late_ack"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
