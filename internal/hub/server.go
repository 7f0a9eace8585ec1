package hub

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"
)

// Server accepts TCP listeners of the progress feed.
type Server struct {
	Addr string
	Hub  *Hub
	// Runs, when set, lets new listeners catch up on running imports.
	Runs RunLister
}

func NewServer(addr string, h *Hub) *Server {
	return &Server{Addr: addr, Hub: h}
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve takes ownership of ln and closes it when ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Hub.logf("[hub] tcp feed listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		for _, line := range s.Hub.greeting("tcp", s.Runs) {
			if _, err := conn.Write(line); err != nil {
				break
			}
		}
		s.Hub.Add(conn)
		s.Hub.logf("[hub] tcp client connected: %s", conn.RemoteAddr())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Hub.logf("[hub] tcp client disconnected: %s", c.RemoteAddr())
			}()

			// listeners are read-only; drain until they hang up
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
