package command

import (
	"errors"
	"log"
	"net"
)

// ScaleSink receives decoded scale commands; the time virtualization engine
// implements it.
type ScaleSink interface {
	SetScale(scale float64)
}

// Server reads scale batches from a single client at a time. On disconnect it
// goes back to accepting, so the controller can reconnect without restarting
// the engine.
type Server struct {
	listener net.Listener
	sink     ScaleSink
}

func NewServer(listener net.Listener, sink ScaleSink) *Server {
	return &Server{listener: listener, sink: sink}
}

// Serve blocks in the accept/read loop until the listener is closed. Only one
// connection is serviced at a time; commands are applied in order of arrival.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.serveConn(conn)
	}
}

// Close interrupts Serve.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, readBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			scale, derr := Last(buf[:n])
			if derr == nil && scale >= 0 {
				s.sink.SetScale(float64(scale))
			}
		}
		if err != nil {
			// Client dropped; recoverable, go back to listening.
			log.Printf("command: client disconnected: %v", err)
			return
		}
	}
}
