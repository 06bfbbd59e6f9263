package newcamd

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ClientState is the connection's position in the §4.7 state machine.
type ClientState int32

const (
	StateFresh ClientState = iota
	StateAuthenticated
	StateTerminating
)

func (s ClientState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateAuthenticated:
		return "authenticated"
	case StateTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state as its name rather than its ordinal, for
// the admin API's client snapshot (§6).
func (s ClientState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Client is one connection's live state (§3). Fields touched from outside
// the owning dispatch loop (Kill, the admin snapshot) are either atomics or
// guarded by mu.
type Client struct {
	ID        uuid.UUID
	Conn      net.Conn
	IP        string
	ConnectAt time.Time

	keys Handshake // handshake seed + current cipher keys; re-keyed at login

	state    int32 // ClientState, atomic
	killFlag int32 // atomic bool

	mu          sync.Mutex
	account     *Account
	username    string
	clientID    uint16 // service-id field from the LOGIN frame
	clientName  string
	lastECMAt   time.Time
	lastCAID    uint16
	lastSID     uint16
	lastChannel string

	bytesIn  int64 // atomic
	bytesOut int64 // atomic
}

// NewClient wraps an accepted connection in fresh Fresh-state client
// tracking.
func NewClient(conn net.Conn, ip string, hs Handshake) *Client {
	return &Client{
		ID:        uuid.New(),
		Conn:      conn,
		IP:        ip,
		ConnectAt: time.Now(),
		keys:      hs,
		lastECMAt: time.Now(),
	}
}

func (c *Client) State() ClientState { return ClientState(atomic.LoadInt32(&c.state)) }
func (c *Client) setState(s ClientState) { atomic.StoreInt32(&c.state, int32(s)) }

// Kill sets the kill flag; checked once per dispatch loop iteration.
func (c *Client) Kill() { atomic.StoreInt32(&c.killFlag, 1) }
func (c *Client) killed() bool { return atomic.LoadInt32(&c.killFlag) == 1 }

func (c *Client) addBytesIn(n int)  { atomic.AddInt64(&c.bytesIn, int64(n)) }
func (c *Client) addBytesOut(n int) { atomic.AddInt64(&c.bytesOut, int64(n)) }

// Account returns the currently bound account, if authenticated.
func (c *Client) Account() *Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

// rebind resolves the client's account by username against store, per the
// §4.6 reload protocol. Returns false (and sets the kill flag) if the
// username no longer exists.
func (c *Client) rebind(store *AccountStore) bool {
	c.mu.Lock()
	username := c.username
	c.mu.Unlock()
	if username == "" {
		return true // Fresh, unauthenticated: nothing to rebind
	}
	acc, ok := store.Lookup(username)
	c.mu.Lock()
	if ok {
		c.account = acc
	}
	c.mu.Unlock()
	if !ok {
		c.Kill()
	}
	return ok
}

// Snapshot is the admin-facing, read-only view of a client (§6
// administrative interface contract: "query the live client registry
// snapshot").
type Snapshot struct {
	ID         uuid.UUID
	IP         string
	Username   string
	ClientName string
	CAID       uint16
	SID        uint16
	Channel    string
	ConnectAt  time.Time
	LastECMAt  time.Time
	BytesIn    int64
	BytesOut   int64
	State      ClientState
}

func (c *Client) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:         c.ID,
		IP:         c.IP,
		Username:   c.username,
		ClientName: c.clientName,
		CAID:       c.lastCAID,
		SID:        c.lastSID,
		Channel:    c.lastChannel,
		ConnectAt:  c.ConnectAt,
		LastECMAt:  c.lastECMAt,
		BytesIn:    atomic.LoadInt64(&c.bytesIn),
		BytesOut:   atomic.LoadInt64(&c.bytesOut),
		State:      c.State(),
	}
}

// ClientRegistry is the bounded (capacity 256) set of live clients (§3
// "Client registry").
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*Client
	cap     int
}

// NewClientRegistry returns an empty registry with the given capacity.
func NewClientRegistry(capacity int) *ClientRegistry {
	return &ClientRegistry{clients: make(map[uuid.UUID]*Client, capacity), cap: capacity}
}

// Register adds c to the registry. Returns false if the registry is full.
func (r *ClientRegistry) Register(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clients) >= r.cap {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// Unregister removes c from the registry.
func (r *ClientRegistry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c.ID)
}

// Len reports the number of currently registered clients.
func (r *ClientRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// KillByID sets the kill flag on the client with the given id, if live.
func (r *ClientRegistry) KillByID(id uuid.UUID) bool {
	r.mu.Lock()
	c, ok := r.clients[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	c.Kill()
	return true
}

// Each calls fn for every currently registered client. fn must not block on
// the client's own lock beyond a short critical section — Each holds the
// registry lock for its duration.
func (r *ClientRegistry) Each(fn func(*Client)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		fn(c)
	}
}

// Snapshots returns a point-in-time view of every live client, for the
// admin registry-snapshot endpoint.
func (r *ClientRegistry) Snapshots() []Snapshot {
	r.mu.Lock()
	cs := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		cs = append(cs, c)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.snapshot())
	}
	return out
}
