package server

import (
	"net"
	"sync"

	"github.com/eternalApril/moonkv/internal/resp"
)

// Peer represents a connected client.
// It wraps a network connection and provides synchronized methods for writing RESP-encoded data,
// replies and pub/sub deliveries share the same encoder
type Peer struct {
	conn   net.Conn
	reader *resp.Decoder
	writer *resp.Encoder
	mu     sync.Mutex
}

// NewPeer initializes a new client peer from a network connection
func NewPeer(conn net.Conn) *Peer {
	return &Peer{
		conn:   conn,
		reader: resp.NewDecoder(conn),
		writer: resp.NewEncoder(conn),
	}
}

// Send encodes a RESP value into the output buffer.
// This method is thread-safe and can be called from multiple goroutines
func (p *Peer) Send(v resp.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Write(v)
}

// Flush sends all buffered data to the client
func (p *Peer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Flush()
}

// ReadCommand reads and decodes the next RESP value from the client's input stream.
// Only one goroutine may read
func (p *Peer) ReadCommand() (resp.Value, error) {
	return p.reader.Read()
}

// RemoteAddr returns the client address
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// CloseRead stops reading from the client while letting pending replies out.
// Connections without half-close are closed completely
func (p *Peer) CloseRead() error {
	if tc, ok := p.conn.(interface{ CloseRead() error }); ok {
		return tc.CloseRead()
	}
	return p.conn.Close()
}

// Close terminates the underlying network connection
func (p *Peer) Close() error {
	return p.conn.Close()
}
