// Package mindroidplugin is the default wire transport: a bespoke
// length-prefixed TCP frame protocol carrying Binder transactions between
// nodes. One Plugin instance is created for the "mindroid" scheme
// configured in the topology.
//
// Grounded on mindroid/runtime/system/plugins/Mindroid.cpp: Server accepts
// inbound connections and resolves incoming transactions against the local
// Runtime; Client dials a remote node's server and multiplexes transactions
// over it by a per-connection transaction id.
package mindroidplugin

import (
	"encoding/binary"
	"fmt"
	"io"
)

type frameType int32

const (
	frameTransaction frameType = 1
	frameException   frameType = 2
)

// frame is the on-wire unit: type, target binder URI, a transaction id the
// client uses to match replies to requests, the transaction's "what" code,
// and the marshalled Parcel payload.
type frame struct {
	Type          frameType
	URI           string
	TransactionID int32
	What          int32
	Data          []byte
}

func writeFrame(w io.Writer, f *frame) error {
	var header [4]byte

	binary.BigEndian.PutUint32(header[:], uint32(f.Type))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	uriBytes := []byte(f.URI)
	if len(uriBytes) > 0xFFFF {
		return fmt.Errorf("mindroidplugin: uri too long: %d bytes", len(uriBytes))
	}
	var uriLen [2]byte
	binary.BigEndian.PutUint16(uriLen[:], uint16(len(uriBytes)))
	if _, err := w.Write(uriLen[:]); err != nil {
		return err
	}
	if _, err := w.Write(uriBytes); err != nil {
		return err
	}

	binary.BigEndian.PutUint32(header[:], uint32(f.TransactionID))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(header[:], uint32(f.What))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(header[:], uint32(len(f.Data)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(f.Data) > 0 {
		if _, err := w.Write(f.Data); err != nil {
			return err
		}
	}
	return nil
}

func readFrame(r io.Reader) (*frame, error) {
	var buf [4]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	f := &frame{Type: frameType(binary.BigEndian.Uint32(buf[:]))}

	var uriLen [2]byte
	if _, err := io.ReadFull(r, uriLen[:]); err != nil {
		return nil, err
	}
	uriBytes := make([]byte, binary.BigEndian.Uint16(uriLen[:]))
	if _, err := io.ReadFull(r, uriBytes); err != nil {
		return nil, err
	}
	f.URI = string(uriBytes)

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	f.TransactionID = int32(binary.BigEndian.Uint32(buf[:]))

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	f.What = int32(binary.BigEndian.Uint32(buf[:]))

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(buf[:])
	if size > 0 {
		f.Data = make([]byte, size)
		if _, err := io.ReadFull(r, f.Data); err != nil {
			return nil, err
		}
	}

	return f, nil
}
