package newcamd

import (
	"sync"
	"sync/atomic"
	"time"
)

// AccountKeyPair is one CAID's pair of 16-byte control word keys, selected
// by the low bit of the ECM's first byte (§4.3 "kidx").
type AccountKeyPair struct {
	CAID uint16
	K0   [16]byte
	K1   [16]byte
}

// Schedule is a day-of-week and minute-of-day access window. Both ranges
// may wrap around (from > to means the range crosses midnight or the
// weekend); see §4.6.
type Schedule struct {
	DayFrom  int // 0=Mon..6=Sun
	DayTo    int
	HHMMFrom int // hour*100 + minute
	HHMMTo   int
}

// inWindow reports whether wday (0=Mon..6=Sun) and hhmm fall within s.
func (s *Schedule) inWindow(wday, hhmm int) bool {
	if s == nil {
		return true
	}
	var dayOK bool
	if s.DayFrom <= s.DayTo {
		dayOK = wday >= s.DayFrom && wday <= s.DayTo
	} else {
		dayOK = wday >= s.DayFrom || wday <= s.DayTo
	}
	if !dayOK {
		return false
	}
	if s.HHMMFrom <= s.HHMMTo {
		return hhmm >= s.HHMMFrom && hhmm < s.HHMMTo
	}
	return hhmm >= s.HHMMFrom || hhmm < s.HHMMTo
}

// accountCounters holds the per-account atomic statistics from §3. First-
// and last-seen timestamps are guarded by a small mutex rather than atomics
// (time.Time is not atomic-friendly); everything else is a plain int64,
// counted per account instead of behind one process-wide lock.
type accountCounters struct {
	active      int64
	ecmTotal    int64
	cwHits      int64
	cwMisses    int64
	decodeNanos int64

	mu         sync.Mutex
	firstLogin time.Time
	lastSeen   time.Time
}

func (c *accountCounters) incActive() { atomic.AddInt64(&c.active, 1) }
func (c *accountCounters) decActive() { atomic.AddInt64(&c.active, -1) }
func (c *accountCounters) loadActive() int64 { return atomic.LoadInt64(&c.active) }

func (c *accountCounters) recordECM(hit bool, took time.Duration) {
	atomic.AddInt64(&c.ecmTotal, 1)
	if hit {
		atomic.AddInt64(&c.cwHits, 1)
		atomic.AddInt64(&c.decodeNanos, int64(took))
	} else {
		atomic.AddInt64(&c.cwMisses, 1)
	}
}

func (c *accountCounters) touchLastSeen(now time.Time) {
	c.mu.Lock()
	if c.firstLogin.IsZero() {
		c.firstLogin = now
	}
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *accountCounters) snapshot() (firstLogin, lastSeen time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstLogin, c.lastSeen
}

func (c *accountCounters) reset() {
	atomic.StoreInt64(&c.ecmTotal, 0)
	atomic.StoreInt64(&c.cwHits, 0)
	atomic.StoreInt64(&c.cwMisses, 0)
	atomic.StoreInt64(&c.decodeNanos, 0)
}

// Account is one configured client identity (§3).
type Account struct {
	Username     string
	Password     string // stored plaintext, hashed on use
	Enabled      bool
	CAID         uint16
	ExtraCAIDs   []uint16 // ≤ 8
	Keys         []AccountKeyPair // ≤ 8
	IPWhitelist  []string // ≤ 16
	SIDWhitelist []uint16 // ≤ 64
	Schedule     *Schedule
	Expiration   time.Time // zero = never
	MaxConns     int       // 0 = unlimited
	MaxIdle      time.Duration // 0 = disabled
	FakeCW       bool

	counters accountCounters
}

// findKeyPair returns the configured key pair for caid, if any.
func (a *Account) findKeyPair(caid uint16) (AccountKeyPair, bool) {
	for _, kp := range a.Keys {
		if kp.CAID == caid {
			return kp, true
		}
	}
	return AccountKeyPair{}, false
}

// keyFor returns the 16-byte DES-EDE2 key selected by kidx (0 or 1) for
// caid: kidx==0 selects K0, anything else selects K1.
func (a *Account) keyFor(caid uint16, kidx byte) ([16]byte, bool) {
	kp, ok := a.findKeyPair(caid)
	if !ok {
		return [16]byte{}, false
	}
	if kidx == 0 {
		return kp.K0, true
	}
	return kp.K1, true
}

// permittedCAID reports whether caid is the account's primary CAID or one
// of its additional CAIDs.
func (a *Account) permittedCAID(caid uint16) bool {
	if caid == a.CAID {
		return true
	}
	for _, c := range a.ExtraCAIDs {
		if c == caid {
			return true
		}
	}
	return false
}

// sidPermitted reports whether sid passes the SID whitelist, or true if no
// whitelist is configured.
func (a *Account) sidPermitted(sid uint16) bool {
	if len(a.SIDWhitelist) == 0 {
		return true
	}
	for _, s := range a.SIDWhitelist {
		if s == sid {
			return true
		}
	}
	return false
}

// ipPermitted reports whether ip passes the IP whitelist, or true if no
// whitelist is configured.
func (a *Account) ipPermitted(ip string) bool {
	if len(a.IPWhitelist) == 0 {
		return true
	}
	for _, w := range a.IPWhitelist {
		if w == ip {
			return true
		}
	}
	return false
}

// isMultiCAID reports whether this account has additional CAIDs beyond
// its primary one.
func (a *Account) isMultiCAID() bool { return len(a.ExtraCAIDs) > 0 }

// CounterSnapshot is the admin-facing, point-in-time view of an account's
// atomic statistics (§6 registry/counter queries).
type CounterSnapshot struct {
	Active      int64
	ECMTotal    int64
	CWHits      int64
	CWMisses    int64
	DecodeTotal time.Duration
	FirstLogin  time.Time
	LastSeen    time.Time
}

// Counters returns a snapshot of the account's counters.
func (a *Account) Counters() CounterSnapshot {
	firstLogin, lastSeen := a.counters.snapshot()
	return CounterSnapshot{
		Active:      a.counters.loadActive(),
		ECMTotal:    atomic.LoadInt64(&a.counters.ecmTotal),
		CWHits:      atomic.LoadInt64(&a.counters.cwHits),
		CWMisses:    atomic.LoadInt64(&a.counters.cwMisses),
		DecodeTotal: time.Duration(atomic.LoadInt64(&a.counters.decodeNanos)),
		FirstLogin:  firstLogin,
		LastSeen:    lastSeen,
	}
}

// ResetCounters zeroes the account's ECM/cache counters, for the admin
// reset-account-counters operation (§6). Active login count and first-login
// time are left untouched: they describe present state, not history.
func (a *Account) ResetCounters() { a.counters.reset() }
