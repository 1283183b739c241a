package mesh

import (
	"net"
	"strconv"
	"time"

	"github.com/jabolina/daonet/internal/packet"
)

// acceptLoop accepts inbound connections and spawns one handler goroutine
// per socket, mirroring accept_connections/handle_incoming in
// original_source/game/transport/transport.py.
func (t *Transport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
				continue
			}
		}
		go t.handleIncoming(conn)
	}
}

// dialLoop attempts an outbound connection to every tracked peer other
// than self, retrying at a fixed interval on refusal. The original
// relies on the outer game loop re-invoking make_connections; here the
// retry is made explicit inside the loop itself.
func (t *Transport) dialLoop() {
	for {
		select {
		case <-t.closed:
			return
		default:
		}

		pending := false
		for _, name := range t.trk.Players() {
			if name == t.myself.Name {
				continue
			}
			t.poolMu.Lock()
			_, have := t.pool[name]
			t.poolMu.Unlock()
			if have {
				continue
			}
			pending = true

			ep, ok := t.trk.Endpoint(name)
			if !ok {
				continue
			}
			conn, err := net.DialTimeout("tcp", net.JoinHostPort(ep.IP, strconv.Itoa(ep.Port)), dialRetryInterval)
			if err != nil {
				continue
			}
			req, _ := packet.New(packet.ConnectionReq, t.myself, nil, time.Now().UnixNano())
			frame, err := req.Encode()
			if err != nil {
				_ = conn.Close()
				continue
			}
			if _, err := conn.Write(frame); err != nil {
				_ = conn.Close()
				continue
			}
			t.log.Infof("sending connection request to %s", name)
			if t.addConn(name, conn) {
				go t.handleIncoming(conn)
			} else {
				_ = conn.Close()
			}
		}

		if !pending || t.AllConnected() {
			return
		}
		select {
		case <-t.closed:
			return
		case <-time.After(dialRetryInterval):
		}
	}
}

// handleIncoming reads fixed-size frames off conn, deduplicates them,
// and either resolves a peering handshake packet or enqueues the decoded
// packet onto the inbound channel.
func (t *Transport) handleIncoming(conn net.Conn) {
	frame := make([]byte, packet.FrameSize)
	for {
		if _, err := readFull(conn, frame); err != nil {
			return
		}
		hashStr, pkt, err := packet.Decode(frame)
		if err != nil {
			continue
		}

		t.histMu.Lock()
		seen := t.history[hashStr]
		t.history[hashStr] = true
		t.histMu.Unlock()
		if seen {
			continue
		}

		switch pkt.PacketType {
		case packet.ConnectionReq:
			t.handleConnectionReq(pkt, conn)
		case packet.ConnectionEstab:
			t.handleConnectionEstab(pkt, conn)
		default:
			select {
			case t.inbound <- pkt:
			case <-t.closed:
				return
			}
		}
	}
}

func (t *Transport) handleConnectionReq(pkt packet.Packet, conn net.Conn) {
	name := pkt.Sender.Name
	if t.addConn(name, conn) {
		t.log.Infof("received connection request from %s, sending estab", name)
	}
	estab, _ := packet.New(packet.ConnectionEstab, t.myself, nil, time.Now().UnixNano())
	if err := t.sendNow(estab, name); err != nil {
		t.log.Warnf("send connection_estab to %s: %v", name, err)
	}
}

func (t *Transport) handleConnectionEstab(pkt packet.Packet, conn net.Conn) {
	name := pkt.Sender.Name
	if t.addConn(name, conn) {
		t.log.Infof("received connection estab from %s, saving connection", name)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
