package newcamd

import (
	"bytes"
	"net"
	"time"

	"github.com/barnettlynn/ncamd/internal/logging"
)

const (
	cmdLogin         = 0xE0
	cmdLoginACK      = 0xE1
	cmdLoginNAK      = 0xE2
	cmdCardDataReq   = 0xE3
	cmdCardData      = 0xE4
	cmdAddCard       = 0xD3
	cmdGetVersion    = 0xD6
	cmdVersionReply  = 0xD6
	cmdKeepalive     = 0x8D
	cmdECM0          = 0x80
	cmdECM1          = 0x81
)

const versionString = "1.67"

// serve runs one connection's handshake and dispatch loop end to end.
func (s *Server) serve(conn net.Conn) {
	ip := peerIP(conn)
	cfg := s.config()
	timeout := cfg.SocketTimeout
	if timeout == 0 {
		timeout = defaultSocketTimeout
	}

	_ = conn.SetDeadline(time.Now().Add(timeout))
	hs, err := ServerHandshake(conn, cfg.RootKey)
	if err != nil {
		s.Log.Debug(logging.CatNet, "%s handshake failed: %v", ip, err)
		conn.Close()
		return
	}

	c := NewClient(conn, ip, hs)
	if !s.Clients.Register(c) {
		s.Log.Info(logging.CatNet, "%s rejected: registry full", ip)
		conn.Close()
		return
	}
	s.Metrics.ConnOpened()
	s.Log.Info(logging.CatClient, "%s connected", ip)

	defer func() {
		s.Clients.Unregister(c)
		if acc := c.Account(); acc != nil {
			acc.counters.decActive()
		}
		conn.Close()
		s.Metrics.ConnClosed()
		s.Log.Info(logging.CatClient, "%s disconnected", ip)
	}()

	for !c.killed() {
		if acc := c.Account(); acc != nil && acc.MaxIdle > 0 {
			c.mu.Lock()
			idle := time.Since(c.lastECMAt)
			c.mu.Unlock()
			if idle >= acc.MaxIdle {
				s.Log.Info(logging.CatClient, "%s idle timeout (%s) — disconnecting", ip, idle)
				return
			}
		}

		_ = conn.SetDeadline(time.Now().Add(timeout))
		msg, err := ReadFrame(conn, c.keys.Keys)
		if err != nil {
			s.Log.Debug(logging.CatClient, "%s read: %v", ip, err)
			return
		}
		c.addBytesIn(len(msg.Payload))

		s.Log.Debug(logging.CatProto, "%s cmd=0x%02X sid=%04X len=%d", ip, msg.Cmd, msg.SvcID, len(msg.Payload))

		switch msg.Cmd {
		case cmdLogin:
			if !s.handleLogin(c, msg) {
				return
			}
		case cmdCardDataReq:
			s.handleCardInfo(c, msg)
		case cmdKeepalive:
			s.sendReply(c, msg.Cmd, msg.Status, msg.Payload, msg)
		case cmdECM0, cmdECM1:
			s.handleECM(c, msg)
		case cmdGetVersion:
			s.handleVersion(c, msg)
		default:
			s.Log.Debug(logging.CatProto, "%s unknown cmd=0x%02X", ip, msg.Cmd)
		}
	}
}

func peerIP(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// sendReply writes a reply frame reusing the originating message's
// msg-id/service-id/program-id, matching nc_send's call convention.
func (s *Server) sendReply(c *Client, cmd, status byte, payload []byte, in *Message) {
	out := &Message{
		Cmd:     cmd,
		Status:  status,
		Payload: payload,
		MsgID:   in.MsgID,
		SvcID:   in.SvcID,
		ProgID:  in.ProgID,
	}
	if err := WriteFrame(c.Conn, c.keys.Keys, out); err != nil {
		s.Log.Debug(logging.CatNet, "%s write: %v", c.IP, err)
		return
	}
	c.addBytesOut(len(payload))
}

func splitCString(payload []byte) (s string, rest []byte, ok bool) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 {
		return "", nil, false
	}
	return string(payload[:i]), payload[i+1:], true
}

// handleLogin implements §4.7's LOGIN handling, including the
// close-on-NAK decision.
func (s *Server) handleLogin(c *Client, msg *Message) bool {
	nak := func() bool {
		s.sendReply(c, cmdLoginNAK, 0, nil, msg)
		return false
	}

	username, rest, ok := splitCString(msg.Payload)
	if !ok {
		return nak()
	}
	hash, _, ok := splitCString(rest)
	if !ok {
		return nak()
	}

	if s.Bans.IsBanned(c.IP) {
		s.Log.Info(logging.CatBan, "%s LOGIN rejected: banned", c.IP)
		return nak()
	}

	acc, found := s.Store.Lookup(username)
	if !found {
		s.Bans.RecordFail(c.IP)
		if s.Bans.IsBanned(c.IP) {
			s.Metrics.BanIssued()
		}
		s.Log.Info(logging.CatClient, "%s LOGIN failed: unknown user %q", c.IP, username)
		return nak()
	}
	if !acc.Enabled {
		s.Log.Info(logging.CatClient, "%s LOGIN failed: account disabled %q", c.IP, username)
		return nak()
	}
	if !acc.ipPermitted(c.IP) {
		s.Log.Info(logging.CatClient, "%s LOGIN failed: IP not whitelisted for %q", c.IP, username)
		return nak()
	}

	salt, _ := saltFromHash(hash)
	expected := md5Crypt(acc.Password, salt)
	if !constTimeStringEqual(expected, hash) {
		s.Bans.RecordFail(c.IP)
		if s.Bans.IsBanned(c.IP) {
			s.Metrics.BanIssued()
		}
		s.Log.Info(logging.CatClient, "%s LOGIN failed: wrong password for %q", c.IP, username)
		return nak()
	}
	if !acc.Expiration.IsZero() && time.Now().After(acc.Expiration) {
		s.Log.Info(logging.CatClient, "%s LOGIN denied: account %q expired", c.IP, username)
		return nak()
	}
	if acc.MaxConns > 0 && acc.counters.loadActive() >= int64(acc.MaxConns) {
		s.Log.Info(logging.CatClient, "%s LOGIN denied: %q max_connections reached", c.IP, username)
		return nak()
	}

	s.sendReply(c, cmdLoginACK, 0, nil, msg)

	newKeys := reKey(c.keys.Seed, []byte(hash))

	c.mu.Lock()
	c.keys.Keys = newKeys
	c.account = acc
	c.username = username
	c.clientID = msg.SvcID
	c.clientName = s.ClientNames.ClientName(msg.SvcID)
	c.mu.Unlock()
	c.setState(StateAuthenticated)

	acc.counters.incActive()
	acc.counters.touchLastSeen(time.Now())
	s.Bans.RecordOK(c.IP)

	s.Log.Info(logging.CatClient, "%s authenticated %q caid=%04X", c.IP, username, acc.CAID)
	return true
}

func (s *Server) handleCardInfo(c *Client, msg *Message) {
	acc := c.Account()
	if acc == nil {
		return
	}
	payload := make([]byte, 23) // occupies bytes 3:26 of the reply frame
	payload[1] = byte(acc.CAID >> 8)
	payload[2] = byte(acc.CAID)
	s.sendReply(c, cmdCardData, 0, payload, msg)
	s.Log.Debug(logging.CatECM, "%s CARD_DATA caid=%04X", c.IP, acc.CAID)

	if acc.isMultiCAID() {
		s.sendAddCard(c, acc.CAID, msg)
		for _, extra := range acc.ExtraCAIDs {
			if extra != acc.CAID {
				s.sendAddCard(c, extra, msg)
			}
		}
	}
}

// sendAddCard writes an unsolicited 0xD3 ADD-CARD frame with an empty
// payload: the caid occupies the CAID-hint slot and the provider-id the
// program-id slot of the header, and no service-id is set.
func (s *Server) sendAddCard(c *Client, caid uint16, in *Message) {
	const provID = 0
	base := make([]byte, 13)
	putBE16(base[0:2], in.MsgID)
	// base[2:4] (service-id slot) stays zero
	base[4] = byte(caid >> 8)
	base[5] = byte(caid)
	base[6] = byte(provID >> 16)
	base[7] = byte(provID >> 8)
	base[8] = byte(provID)
	// base[9] stays zero
	base[10] = cmdAddCard
	// base[11:13] stays zero — status/length fields are unused here
	if err := writeFrameBody(c.Conn, c.keys.Keys, base); err != nil {
		s.Log.Debug(logging.CatNet, "%s write addcard: %v", c.IP, err)
		return
	}
}

// handleVersion replies with the fixed version string. Grounded on
// nc_send_version, which zeroes service-id and program-id on this one
// reply rather than echoing the request's.
func (s *Server) handleVersion(c *Client, msg *Message) {
	out := &Message{
		Cmd:     cmdVersionReply,
		MsgID:   msg.MsgID,
		Payload: []byte(versionString),
	}
	if err := WriteFrame(c.Conn, c.keys.Keys, out); err != nil {
		s.Log.Debug(logging.CatNet, "%s write version: %v", c.IP, err)
		return
	}
	c.addBytesOut(len(out.Payload))
}

// handleECM implements §4.7's ECM handling: policy checks, cache lookup,
// decode-on-miss, and the always-zeroed-on-failure reply.
func (s *Server) handleECM(c *Client, msg *Message) {
	cw := make([]byte, 16)
	defer secureZero(cw)

	nak := func() {
		s.sendReply(c, msg.Cmd, 0, nil, msg)
	}

	acc := c.Account()
	if acc == nil {
		nak()
		return
	}
	if !acc.Schedule.inWindow(weekday(time.Now()), hhmm(time.Now())) {
		s.Log.Info(logging.CatClient, "%s ECM denied: outside schedule for %q", c.IP, acc.Username)
		nak()
		return
	}

	ecmCAID := acc.CAID
	if acc.isMultiCAID() && msg.CAIDHint != 0 {
		if !acc.permittedCAID(msg.CAIDHint) {
			s.Log.Info(logging.CatClient, "%s CAID %04X not permitted for %q", c.IP, msg.CAIDHint, acc.Username)
			nak()
			return
		}
		ecmCAID = msg.CAIDHint
	}
	if !acc.sidPermitted(msg.SvcID) {
		s.Log.Debug(logging.CatClient, "%s SID %04X not whitelisted for %q", c.IP, msg.SvcID, acc.Username)
		nak()
		return
	}

	now := time.Now()
	c.mu.Lock()
	c.lastECMAt = now
	c.lastCAID = ecmCAID
	c.lastSID = msg.SvcID
	if name, ok := s.ChannelName.Lookup(ecmCAID, msg.SvcID); ok {
		c.lastChannel = name
	} else {
		c.lastChannel = ""
	}
	c.mu.Unlock()

	fp := ecmFingerprint(msg.Payload)
	start := time.Now()
	var res DecodeResult
	if cached, hit := s.Cache.Lookup(fp); hit {
		copy(cw, cached[:])
		res = DecodeOK
		s.Metrics.CacheHit()
		s.Log.Debug(logging.CatECM, "%s ECM cache HIT caid=%04X sid=%04X", c.IP, ecmCAID, msg.SvcID)
	} else {
		s.Metrics.CacheMiss()
		res = decodeECM(s.Decoders, ecmCAID, msg.Payload, acc, cw)
		if res == DecodeOK {
			var stored [16]byte
			copy(stored[:], cw)
			s.Cache.Store(fp, stored)
		}
	}
	s.Metrics.ECMDecoded(res == DecodeOK)
	acc.counters.recordECM(res == DecodeOK, time.Since(start))

	if res == DecodeOK {
		s.sendReply(c, msg.Cmd, 0, cw, msg)
		acc.counters.touchLastSeen(time.Now())
	} else {
		nak()
	}
}

func weekday(t time.Time) int {
	wd := int(t.Weekday()) // 0=Sun..6=Sat
	if wd == 0 {
		return 6
	}
	return wd - 1 // 0=Mon..6=Sun
}

func hhmm(t time.Time) int {
	return t.Hour()*100 + t.Minute()
}
