package mindroidplugin

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/geoffjay/mindroid/concurrent"
	mos "github.com/geoffjay/mindroid/os"
	log "github.com/sirupsen/logrus"
)

// client owns the single outbound connection to one remote node and
// multiplexes every Proxy transaction bound for it over that connection by
// transaction id.
//
// Grounded on Mindroid::Client / Mindroid::Client::Connection.
type client struct {
	nodeID uint32
	plugin *Plugin
	conn   *wireConnection

	transactionCounter int32

	mu           sync.Mutex
	transactions map[int32]*concurrent.Promise[*mos.Parcel]
	closed       bool
}

func newClient(nodeID uint32, plugin *Plugin) *client {
	return &client{
		nodeID:       nodeID,
		plugin:       plugin,
		transactions: make(map[int32]*concurrent.Promise[*mos.Parcel]),
	}
}

func (c *client) start(rawURI string) error {
	authority, err := tcpAuthority(rawURI)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", authority, c.plugin.config.ConnectTimeout)
	if err != nil {
		return err
	}

	wc := newWireConnection(conn, c.plugin.config.WriteQueueSize)
	c.conn = wc
	go wc.writeLoop()
	go c.readLoop(wc)
	return nil
}

func (c *client) readLoop(wc *wireConnection) {
	defer c.shutdown()

	for {
		f, err := readFrame(wc.conn)
		if err != nil {
			return
		}

		c.mu.Lock()
		promise := c.transactions[f.TransactionID]
		delete(c.transactions, f.TransactionID)
		c.mu.Unlock()

		if promise == nil {
			log.WithFields(log.Fields{"transactionId": f.TransactionID}).Error("mindroidplugin: unknown transaction id")
			continue
		}

		if f.Type == frameTransaction {
			reply := mos.ObtainParcelFrom(f.Data)
			reply.AsInput()
			promise.Complete(reply)
		} else {
			promise.CompleteWith(mos.NewRemoteException("binder transaction failure"))
		}
	}
}

func (c *client) transact(binderURI string, what int32, data *mos.Parcel, flags int32) (*concurrent.Promise[*mos.Parcel], error) {
	transactionID := atomic.AddInt32(&c.transactionCounter, 1)

	var result *concurrent.Promise[*mos.Parcel]
	if flags&mos.FlagOneway == 0 {
		result = concurrent.NewPromiseWithExecutor[*mos.Parcel](concurrent.SynchronousExecutor)
		c.mu.Lock()
		c.transactions[transactionID] = result
		c.mu.Unlock()
	}

	c.conn.send(&frame{
		Type:          frameTransaction,
		URI:           binderURI,
		TransactionID: transactionID,
		What:          what,
		Data:          data.Bytes(),
	})
	return result, nil
}

func (c *client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.transactions
	c.transactions = make(map[int32]*concurrent.Promise[*mos.Parcel])
	c.mu.Unlock()

	for _, p := range pending {
		p.CompleteWith(mos.NewRemoteException("connection closed"))
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.plugin.onClientShutdown(c.nodeID)
}
