// Package store holds the authoritative in-memory state of every chat.
//
// Mutations are expected to come from a single goroutine (the sync engine);
// readers may call the query methods concurrently and always receive copies.
package store

import (
	"cmp"
	"regexp"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/errs"
)

var numberRegexp = regexp.MustCompile(`^\d{10,15}$`)

// ValidateNumber checks a phone number typed by the user for a new chat.
func ValidateNumber(number string) error {
	if !numberRegexp.MatchString(number) {
		return errs.InvalidArg("invalid number " + number + ": expected 10 to 15 digits")
	}
	return nil
}

// DefaultName is the display name of a chat the backend has not named.
func DefaultName(chatID string) string {
	if numberRegexp.MatchString(chatID) {
		return "+" + chatID
	}
	return chatID
}

type entry struct {
	Message
	seq uint64
	// echoed is set once a backend record has been matched to this local entry.
	echoed bool
	// estimated is set while Timestamp comes from the local clock.
	estimated bool
}

type chat struct {
	id      string
	name    string
	entries []*entry
	unread  int
	keys    map[string]*entry
	// polled is set once a chat-list snapshot has been applied.
	polled bool
}

func (c *chat) lastActivity() int64 {
	if len(c.entries) == 0 {
		return 0
	}
	return c.entries[len(c.entries)-1].Timestamp
}

// Option configures a Store.
type Option func(*Store)

// WithEchoTolerance sets how far apart in time an outbound record and a local
// pending message may be and still be matched.
func WithEchoTolerance(d time.Duration) Option {
	return func(s *Store) { s.tolerance = d.Milliseconds() }
}

// WithClock replaces time.Now for optimistic message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store maps chat ids to chat state.
type Store struct {
	mu        sync.RWMutex
	chats     map[string]*chat
	temps     map[string]string
	open      string
	seq       uint64
	tolerance int64
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an empty store.
func New(logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		chats:     make(map[string]*chat),
		temps:     make(map[string]string),
		tolerance: (5 * time.Second).Milliseconds(),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) getOrCreate(id, name string) (*chat, bool) {
	if c, ok := s.chats[id]; ok {
		return c, false
	}
	if name == "" {
		name = DefaultName(id)
	}
	c := &chat{id: id, name: name, keys: make(map[string]*entry)}
	s.chats[id] = c
	return c, true
}

// insert places e after every entry with a timestamp <= its own, so equal
// timestamps keep arrival order.
func (s *Store) insert(c *chat, e *entry) {
	s.seq++
	e.seq = s.seq
	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Timestamp > e.Timestamp
	})
	c.entries = slices.Insert(c.entries, i, e)
}

// advance moves e's status forward. Failed is terminal and is only reachable
// from pending.
func (s *Store) advance(e *entry, to Status) bool {
	if e.Status == to {
		return false
	}
	if e.Status == StatusFailed {
		s.logger.Info("late confirmation for failed message dropped",
			zap.String("chat", e.ChatID),
			zap.String("temp_id", e.TempID),
			zap.String("status", string(to)),
		)
		return false
	}
	if to == StatusFailed {
		if e.Status != StatusPending {
			return false
		}
		e.Status = StatusFailed
		return true
	}
	if to.rank() > e.Status.rank() {
		e.Status = to
		return true
	}
	return false
}

// remoteStatus is the status implied by the backend reporting an outbound message.
func remoteStatus(r Record) Status {
	if r.Status == StatusDelivered {
		return StatusDelivered
	}
	return StatusSent
}

// applyRecord merges one backend record into c and reports whether c changed.
func (s *Store) applyRecord(c *chat, r Record, countUnread bool) bool {
	e, err := c.resolve(r, s.tolerance)
	if err != nil {
		s.logger.Warn("identity conflict, keeping record as a new message",
			zap.String("chat", c.id),
			zap.String("id", r.ID),
			zap.Error(err),
		)
	}
	if e != nil {
		return s.merge(c, e, r)
	}

	e = &entry{Message: Message{
		ID:        r.ID,
		ChatID:    c.id,
		Direction: r.Direction,
		Text:      r.Text,
		Status:    StatusDelivered,
		Timestamp: r.Timestamp,
	}, estimated: r.Estimated}
	if r.Direction == Outbound {
		e.Status = remoteStatus(r)
	}
	s.insert(c, e)
	if r.ID != "" {
		c.alias(idKey(r.ID), e)
	}
	if r.TempID != "" {
		c.alias(tmpKey(r.TempID), e)
	}
	if !r.Estimated {
		c.alias(fpKey(c.id, r), e)
	}

	if countUnread && r.Direction == Inbound && c.id != s.open {
		c.unread++
	}
	return true
}

func (s *Store) merge(c *chat, e *entry, r Record) bool {
	changed := false
	if r.ID != "" && e.ID == "" {
		e.ID = r.ID
		c.alias(idKey(r.ID), e)
		changed = true
	}
	if r.TempID != "" {
		c.alias(tmpKey(r.TempID), e)
	}
	if !r.Estimated {
		if e.estimated {
			s.retime(c, e, r.Timestamp)
			changed = true
		}
		c.alias(fpKey(c.id, r), e)
	}
	if e.Direction == Outbound {
		e.echoed = true
		if s.advance(e, remoteStatus(r)) {
			changed = true
		}
	}
	return changed
}

// retime replaces a locally estimated timestamp with the backend's and moves
// e to its place in the timeline.
func (s *Store) retime(c *chat, e *entry, ts int64) {
	if i := slices.Index(c.entries, e); i >= 0 {
		c.entries = slices.Delete(c.entries, i, i+1)
	}
	e.Timestamp = ts
	e.estimated = false
	s.insert(c, e)
}

// UpsertChatSnapshot merges a polled chat. Local messages the snapshot does
// not mention are kept; duplicates collapse through identity resolution.
// Unread is taken from the first chat-list snapshot seen for the chat; after
// that only unseen inbound records count. Timeline fetches for a chat no list
// snapshot has covered yet leave unread alone.
func (s *Store) UpsertChatSnapshot(snap Snapshot) (bool, error) {
	if snap.ChatID == "" {
		return false, errs.Protocol("chat snapshot without id", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, created := s.getOrCreate(snap.ChatID, snap.Name)
	changed := created
	if snap.Name != "" && c.name != snap.Name {
		c.name = snap.Name
		changed = true
	}
	count := c.polled
	if !c.polled && !snap.MessagesOnly {
		c.polled = true
		if c.id != s.open && c.unread != max(snap.Unread, 0) {
			c.unread = max(snap.Unread, 0)
			changed = true
		}
	}
	for _, r := range snap.Messages {
		if s.applyRecord(c, r, count) {
			changed = true
		}
	}
	return changed, nil
}

// ApplyPushEvent merges one pushed message, creating the chat on first reference.
func (s *Store) ApplyPushEvent(chatID string, r Record) (bool, error) {
	if chatID == "" {
		return false, errs.Protocol("push event without chat id", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, created := s.getOrCreate(chatID, "")
	return s.applyRecord(c, r, true) || created, nil
}

// BeginOptimisticSend appends a pending outbound message and returns it. The
// returned TempID is the handle for ResolveSend. retryOf names the failed
// message being resubmitted, if any.
func (s *Store) BeginOptimisticSend(chatID, text, retryOf string) (Message, error) {
	if chatID == "" {
		return Message{}, errs.InvalidArg("chat id is required")
	}
	if text == "" {
		return Message{}, errs.InvalidArg("message text is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, _ := s.getOrCreate(chatID, "")
	e := &entry{Message: Message{
		TempID:    newTempID(),
		ChatID:    chatID,
		Direction: Outbound,
		Text:      text,
		Status:    StatusPending,
		Timestamp: s.now().UnixMilli(),
		RetryOf:   retryOf,
	}}
	s.insert(c, e)
	c.keys[tmpKey(e.TempID)] = e
	s.temps[e.TempID] = chatID
	return e.Message, nil
}

// ResolveSend applies a send outcome to the message created by
// BeginOptimisticSend. It returns the chat id and whether anything changed.
// An unknown temp id is logged and ignored.
func (s *Store) ResolveSend(tempID string, out Outcome) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatID, ok := s.temps[tempID]
	if !ok {
		s.logger.Warn("resolve for unknown temp id ignored", zap.String("temp_id", tempID))
		return "", false
	}
	c := s.chats[chatID]
	e := c.keys[tmpKey(tempID)]

	if out.Status == StatusFailed {
		if !s.advance(e, StatusFailed) {
			return chatID, false
		}
		e.Error = out.Reason
		return chatID, true
	}

	if e.Status == StatusFailed {
		// The status stays failed, but the server id still names this entry so
		// the backend's copy collapses into it.
		s.logger.Warn("late acknowledgement for failed send, status kept",
			zap.String("chat", chatID),
			zap.String("temp_id", tempID),
			zap.String("server_id", out.ServerID),
		)
		return chatID, s.claimServerID(c, e, out.ServerID)
	}

	changed := s.claimServerID(c, e, out.ServerID)
	if s.advance(e, out.Status) {
		changed = true
	}
	return chatID, changed
}

// claimServerID binds id to the optimistic entry e. A remote copy already
// stored under id is absorbed into e and its status carried over.
func (s *Store) claimServerID(c *chat, e *entry, id string) bool {
	if id == "" || e.ID != "" {
		return false
	}
	other := c.keys[idKey(id)]
	switch {
	case other == nil || other == e:
		e.ID = id
		c.keys[idKey(id)] = e
	case other.TempID != "":
		s.logger.Warn("server id already assigned to another send",
			zap.String("temp_id", e.TempID),
			zap.String("other_temp_id", other.TempID),
			zap.String("server_id", id),
		)
		return false
	default:
		c.absorb(e, other)
		if e.Status != StatusFailed {
			s.advance(e, other.Status)
		}
	}
	return true
}

// EnsureChat creates a chat the user started. It reports whether the chat is new.
func (s *Store) EnsureChat(id, name string) (Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, created := s.getOrCreate(id, name)
	return snapshotOf(c), created
}

// SetOpenChat records which chat the view shows and clears its unread count.
// An empty id closes the current chat.
func (s *Store) SetOpenChat(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		changed := s.open != ""
		s.open = ""
		return changed, nil
	}
	c, ok := s.chats[id]
	if !ok {
		return false, errs.NotFound("chat " + id)
	}
	changed := s.open != id || c.unread != 0
	s.open = id
	c.unread = 0
	return changed, nil
}

// OpenChat returns the id of the chat shown by the view, or "".
func (s *Store) OpenChat() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Chat returns a copy of one chat with its full timeline.
func (s *Store) Chat(id string) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return Chat{}, false
	}
	return snapshotOf(c), true
}

// Lookup returns the message created for tempID.
func (s *Store) Lookup(tempID string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chatID, ok := s.temps[tempID]
	if !ok {
		return Message{}, false
	}
	e := s.chats[chatID].keys[tmpKey(tempID)]
	return e.Message, true
}

// Chats returns copies of every chat, most recent activity first.
func (s *Store) Chats() []Chat {
	s.mu.RLock()
	out := make([]Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, snapshotOf(c))
	}
	s.mu.RUnlock()
	SortChats(out)
	return out
}

// SortChats orders chats by LastActivityAt descending, then by id.
func SortChats(chats []Chat) {
	slices.SortStableFunc(chats, func(a, b Chat) int {
		if c := cmp.Compare(b.LastActivityAt, a.LastActivityAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func snapshotOf(c *chat) Chat {
	msgs := make([]Message, len(c.entries))
	for i, e := range c.entries {
		msgs[i] = e.Message
	}
	return Chat{
		ID:             c.id,
		Name:           c.name,
		Messages:       msgs,
		LastActivityAt: c.lastActivity(),
		UnreadCount:    c.unread,
	}
}
