package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mpruett/studiohub/internal/stats"
	"github.com/mpruett/studiohub/internal/types"
)

const (
	statActiveConnections = "ActiveConnections"
	statActiveStudios     = "ActiveStudios"
	statEventsRelayed     = "EventsRelayed"
	statEventsDropped     = "EventsDropped"
)

// StudioServer coordinates every live connection. All membership state (the
// studios map, each client's joined set and the presence registry) is
// mutated only inside Run, which makes the single goroutine the writer for
// the whole presence model. Events from one connection reach a given peer
// in the order they were sent: the read pump, the run loop and the peer's
// send channel each preserve order.
type StudioServer struct {
	log        *log.Logger
	registry   *PresenceRegistry
	authorizer Authorizer
	stats      stats.StatsProvider

	clients map[*Client]struct{}
	studios map[string]map[*Client]struct{}

	registerChan   chan *Client
	deregisterChan chan *Client
	eventChan      chan *ClientMessage
	stop           chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func NewStudioServer(logger *log.Logger, registry *PresenceRegistry, authorizer Authorizer, sp stats.StatsProvider) (*StudioServer, error) {
	if registry == nil {
		return nil, fmt.Errorf("presence registry is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	ss := &StudioServer{
		log:            logger,
		registry:       registry,
		authorizer:     authorizer,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		studios:        make(map[string]map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deregisterChan: make(chan *Client),
		eventChan:      make(chan *ClientMessage, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	sp.RegisterMetric(statActiveConnections)
	sp.RegisterMetric(statActiveStudios)
	sp.RegisterMetric(statEventsRelayed)
	sp.RegisterMetric(statEventsDropped)

	return ss, nil
}

func (ss *StudioServer) Run() {
	for {
		select {
		case c := <-ss.registerChan:
			ss.log.Printf("adding connection %s for user %q", c.id, c.user.Id)
			ss.clients[c] = struct{}{}
			ss.stats.Incr(statActiveConnections)
		case c := <-ss.deregisterChan:
			ss.handleDisconnect(c)
		case msg := <-ss.eventChan:
			ss.handleEvent(msg)
		case <-ss.stop:
			ss.log.Println("disconnecting all clients")
			for c := range ss.clients {
				ss.handleDisconnect(c)
			}
			close(ss.done)
			return
		}
	}
}

// RegisterClient hands a freshly upgraded connection to the run loop. The
// caller starts the client's pumps after registering.
func (ss *StudioServer) RegisterClient(c *Client) {
	select {
	case ss.registerChan <- c:
	case <-ss.done:
	}
}

// DeregisterClient triggers the disconnect sequence for c. Called by the
// read pump exactly once, when the transport closes.
func (ss *StudioServer) DeregisterClient(c *Client) {
	select {
	case ss.deregisterChan <- c:
	case <-ss.done:
	}
}

// Presence returns the current occupants of a studio. Safe to call from any
// goroutine; the registry carries its own lock.
func (ss *StudioServer) Presence(studioId string) []types.User {
	return ss.registry.Snapshot(studioId)
}

// Shutdown stops the run loop and disconnects every client. Safe to call
// more than once.
func (ss *StudioServer) Shutdown(ctx context.Context) error {
	ss.stopOnce.Do(func() { close(ss.stop) })

	select {
	case <-ss.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// route enqueues a parsed client event for the run loop, dropping it when
// the loop cannot keep up.
func (ss *StudioServer) route(msg *ClientMessage) {
	select {
	case ss.eventChan <- msg:
	default:
		ss.log.Printf("event channel full, dropping %q event", msg.Type)
		ss.countDrop()
	}
}

func (ss *StudioServer) countDrop() {
	ss.stats.Incr(statEventsDropped)
}

func (ss *StudioServer) handleEvent(msg *ClientMessage) {
	if msg.StudioId == "" {
		ss.log.Printf("conn %s: dropping %q event without studio id", msg.client.id, msg.Type)
		ss.countDrop()
		return
	}

	switch msg.Type {
	case EventJoinStudio:
		ss.handleJoin(msg.client, msg.StudioId)
	case EventLeaveStudio:
		ss.handleLeave(msg.client, msg.StudioId)
	default:
		ss.relay(msg)
	}
}

// handleJoin runs the join sequence: presence add, membership mark, a
// snapshot back to the joiner taken after its own insertion, and a joined
// notification to every other occupant. Re-joining an already joined studio
// skips the mutations but still re-sends the snapshot and notification.
func (ss *StudioServer) handleJoin(c *Client, studioId string) {
	ok, err := ss.authorizer.CanJoin(context.Background(), c.user.Id, studioId)
	if err != nil {
		ss.log.Printf("conn %s: membership check for studio %q: %v", c.id, studioId, err)
		ss.countDrop()
		return
	}
	if !ok {
		ss.log.Printf("conn %s: user %q may not join studio %q", c.id, c.user.Id, studioId)
		ss.countDrop()
		return
	}

	if !c.isJoined(studioId) {
		ss.registry.Add(studioId, c.user)
		c.markJoined(studioId)

		members, ok := ss.studios[studioId]
		if !ok {
			members = make(map[*Client]struct{})
			ss.studios[studioId] = members
			ss.stats.Incr(statActiveStudios)
		}
		members[c] = struct{}{}
	}

	c.queueMessage(ActiveUsers(studioId, ss.registry.Snapshot(studioId)))
	ss.broadcast(studioId, UserJoined(studioId, c.user), c)
}

// handleLeave runs the leave sequence. Leaving a studio the connection never
// joined is a no-op. Peers are only notified once the identity's last
// connection has left the studio.
func (ss *StudioServer) handleLeave(c *Client, studioId string) {
	if !c.isJoined(studioId) {
		return
	}

	c.markLeft(studioId)

	if members, ok := ss.studios[studioId]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(ss.studios, studioId)
			ss.stats.Decr(statActiveStudios)
		}
	}

	if ss.registry.Remove(studioId, c.user.Id) {
		ss.broadcast(studioId, UserLeft(studioId, c.user.Id), c)
	}
}

// handleDisconnect performs the leave sequence for every studio the
// connection is still joined to, then discards the session. Safe to call
// with an already removed client.
func (ss *StudioServer) handleDisconnect(c *Client) {
	if _, ok := ss.clients[c]; !ok {
		return
	}

	ss.log.Printf("removing connection %s for user %q", c.id, c.user.Id)
	for studioId := range c.studios {
		ss.handleLeave(c, studioId)
	}

	delete(ss.clients, c)
	ss.stats.Decr(statActiveConnections)
	c.stopClient()
}

// relay validates that the sender has joined the target studio and
// rebroadcasts the event to every other occupant. Unauthorized or malformed
// events are dropped without surfacing an error to the sender.
func (ss *StudioServer) relay(msg *ClientMessage) {
	c := msg.client
	if !c.isJoined(msg.StudioId) {
		ss.log.Printf("conn %s: dropping %q event for unjoined studio %q", c.id, msg.Type, msg.StudioId)
		ss.countDrop()
		return
	}

	var out *ServerMessage
	switch msg.Type {
	case EventUpdateAsset:
		out = Relayed(EventAssetUpdated, msg.StudioId, msg.Payload)
	case EventDeleteAsset:
		if msg.AssetId == "" {
			ss.countDrop()
			return
		}
		out = AssetDeleted(msg.StudioId, msg.AssetId)
	case EventAddComment:
		out = Relayed(EventCommentAdded, msg.StudioId, msg.Payload)
	case EventCanvasNote:
		out = Relayed(EventCanvasNoteUpdated, msg.StudioId, msg.Payload)
	case EventStudioChat:
		out = Relayed(EventStudioChat, msg.StudioId, msg.Payload)
	case EventCursorMove:
		stamped, err := CursorMoved(msg.StudioId, msg.Cursor, c.user.Id)
		if err != nil {
			ss.log.Printf("conn %s: dropping cursor event: %v", c.id, err)
			ss.countDrop()
			return
		}
		out = stamped
	default:
		ss.log.Printf("conn %s: dropping unknown event type %q", c.id, msg.Type)
		ss.countDrop()
		return
	}

	ss.broadcast(msg.StudioId, out, c)
	ss.stats.Incr(statEventsRelayed)
}

// broadcast delivers msg to every connection joined to the studio except
// skip (the sender, or the joiner for its own notification).
func (ss *StudioServer) broadcast(studioId string, msg *ServerMessage, skip *Client) {
	for client := range ss.studios[studioId] {
		if client == skip {
			continue
		}

		client.queueMessage(msg)
	}
}
