package mindroidplugin

import (
	"fmt"
	"net"
	"sync"

	mos "github.com/geoffjay/mindroid/os"
	log "github.com/sirupsen/logrus"
)

// server accepts inbound connections for this node's configured listen URI
// and resolves incoming transactions against the Plugin's Runtime.
//
// Grounded on Mindroid::Server / Mindroid::Server::Connection.
type server struct {
	plugin   *Plugin
	listener net.Listener

	mu          sync.Mutex
	connections map[*wireConnection]struct{}
}

func newServer(plugin *Plugin) *server {
	return &server{plugin: plugin, connections: make(map[*wireConnection]struct{})}
}

func (s *server) start(rawURI string) error {
	authority, err := tcpAuthority(rawURI)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", authority)
	if err != nil {
		return fmt.Errorf("mindroidplugin: cannot bind server socket on %s: %w", authority, err)
	}
	s.listener = listener

	go s.acceptLoop()
	return nil
}

func (s *server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		log.WithFields(log.Fields{"remote": conn.RemoteAddr().String()}).Debug("mindroidplugin: new connection")

		wc := newWireConnection(conn, s.plugin.config.WriteQueueSize)
		s.mu.Lock()
		s.connections[wc] = struct{}{}
		s.mu.Unlock()

		go wc.writeLoop()
		go s.readLoop(wc)
	}
}

func (s *server) readLoop(wc *wireConnection) {
	defer s.drop(wc)

	for {
		f, err := readFrame(wc.conn)
		if err != nil {
			wc.Close()
			return
		}
		s.handle(wc, f)
	}
}

func (s *server) handle(wc *wireConnection, f *frame) {
	if f.Type != frameTransaction {
		log.WithFields(log.Fields{"type": f.Type}).Error("mindroidplugin: invalid frame type")
		return
	}

	binder, err := s.plugin.rt.Resolve(f.URI)
	if err != nil {
		log.WithFields(log.Fields{"uri": f.URI, "error": err}).Error("mindroidplugin: binder resolution failed")
		wc.send(failureFrame(f))
		return
	}

	data := mos.ObtainParcelFrom(f.Data)
	data.AsInput()

	result, err := binder.Transact(f.What, data, 0)
	if err != nil {
		wc.send(failureFrame(f))
		return
	}
	if result == nil {
		return
	}

	result.OnCompletion(func(error) {
		value, err := result.Get()
		if err != nil {
			wc.send(failureFrame(f))
			return
		}
		wc.send(&frame{
			Type:          frameTransaction,
			URI:           f.URI,
			TransactionID: f.TransactionID,
			What:          f.What,
			Data:          value.Bytes(),
		})
	})
}

func (s *server) drop(wc *wireConnection) {
	s.mu.Lock()
	delete(s.connections, wc)
	s.mu.Unlock()
}

func (s *server) shutdown() {
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	connections := make([]*wireConnection, 0, len(s.connections))
	for wc := range s.connections {
		connections = append(connections, wc)
	}
	s.connections = make(map[*wireConnection]struct{})
	s.mu.Unlock()

	for _, wc := range connections {
		wc.Close()
	}
}

func failureFrame(f *frame) *frame {
	return &frame{Type: frameException, URI: f.URI, TransactionID: f.TransactionID, What: f.What}
}
