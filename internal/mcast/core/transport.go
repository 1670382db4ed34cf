package core

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
)

// Default transport timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultIOTimeout       = 10 * time.Second
	acceptPollInterval     = 1 * time.Second
)

// Transport is the connection-per-send framed TCP primitive the engine
// sends and receives Messages through.
type Transport interface {
	// Send opens a fresh connection to addr, writes one length-prefixed
	// frame, and closes the connection. A transport-level failure (dial,
	// write, timeout) returns false; the engine decides whether to retry.
	Send(message types.Message, addr Address) bool

	// LocalAddress is the address this transport is listening on.
	LocalAddress() Address

	// Close stops accepting new connections. In-flight sends are
	// unaffected; the accept loop exits within one poll interval.
	Close() error
}

// InboundHandler is invoked once per decoded inbound Message. It is called
// from the per-connection reader goroutine; implementations must not block
// indefinitely.
type InboundHandler func(types.Message)

// TCPTransport implements Transport over net.TCPListener/net.Dial.
type TCPTransport struct {
	log types.Logger

	listener net.Listener
	local    Address

	connectTimeout time.Duration
	ioTimeout      time.Duration

	handler InboundHandler

	closeOnce sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

// NewTCPTransport binds host:port (port 0 means "any free port") and
// starts the accept loop. Decoded inbound messages are delivered to
// handler. advertise, if non-nil, overrides the address reported by
// LocalAddress.
func NewTCPTransport(host string, port int, advertise *net.TCPAddr, handler InboundHandler, log types.Logger) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}

	local, err := advertisedAddress(ln, advertise)
	if err != nil {
		ln.Close()
		return nil, err
	}

	t := &TCPTransport{
		log:            log,
		listener:       ln,
		local:          local,
		connectTimeout: DefaultConnectTimeout,
		ioTimeout:      DefaultIOTimeout,
		handler:        handler,
		shutdown:       make(chan struct{}),
	}
	t.wg.Add(1)
	go t.acceptLoop()
	return t, nil
}

func advertisedAddress(ln net.Listener, advertise *net.TCPAddr) (Address, error) {
	if advertise != nil {
		return Address{Host: advertise.IP.String(), Port: advertise.Port}, nil
	}
	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return Address{}, ErrNotAdvertisable
	}
	if tcpAddr.IP.IsUnspecified() {
		return Address{}, ErrNotAdvertisable
	}
	return Address{Host: tcpAddr.IP.String(), Port: tcpAddr.Port}, nil
}

func (t *TCPTransport) LocalAddress() Address { return t.local }

// SetTimeouts overrides the connect/IO timeouts. Zero values leave the
// corresponding timeout unchanged.
func (t *TCPTransport) SetTimeouts(connect, io time.Duration) {
	if connect > 0 {
		t.connectTimeout = connect
	}
	if io > 0 {
		t.ioTimeout = io
	}
}

// acceptLoop accepts inbound connections. It polls the listener deadline
// at acceptPollInterval so Close unblocks it promptly instead of waiting
// on a possibly-idle Accept forever.
func (t *TCPTransport) acceptLoop() {
	defer t.wg.Done()
	tcpLn, _ := t.listener.(*net.TCPListener)
	for {
		select {
		case <-t.shutdown:
			return
		default:
		}

		if tcpLn != nil {
			tcpLn.SetDeadline(time.Now().Add(acceptPollInterval))
		}
		conn, err := t.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-t.shutdown:
				return
			default:
				t.log.Errorf("accept failed: %v", err)
				return
			}
		}

		t.wg.Add(1)
		go t.handleConn(conn)
	}
}

// handleConn reads exactly one frame, decodes it, dispatches it, then
// closes the connection — one frame per TCP connection.
func (t *TCPTransport) handleConn(conn net.Conn) {
	defer t.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(t.ioTimeout))

	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		t.log.Debugf("failed reading frame length: %v", err)
		return
	}
	size := binary.BigEndian.Uint32(lenBuf[:])

	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		t.log.Debugf("failed reading frame payload: %v", err)
		return
	}

	message, err := types.Decode(payload)
	if err != nil {
		t.log.Warnf("dropping undecodable frame: %v", err)
		return
	}

	t.handler(message)
}

// Send implements Transport.
func (t *TCPTransport) Send(message types.Message, addr Address) bool {
	conn, err := net.DialTimeout("tcp", addr.String(), t.connectTimeout)
	if err != nil {
		t.log.Debugf("dial %s failed: %v", addr, err)
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(t.ioTimeout))

	payload, err := message.Encode()
	if err != nil {
		t.log.Errorf("failed encoding message %s: %v", message.MessageID, err)
		return false
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return false
	}
	if _, err := conn.Write(payload); err != nil {
		return false
	}
	return true
}

// shutdownWait bounds how long Close waits for in-flight connection
// handlers to finish: a handler blocked on a slow peer is abandoned
// rather than held open indefinitely.
const shutdownWait = 2 * time.Second

// Close implements Transport.
func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.shutdown)
		err = t.listener.Close()
	})

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownWait):
		t.log.Warnf("transport close timed out waiting for in-flight connections")
	}
	return err
}
