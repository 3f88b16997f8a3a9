package server

import (
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/theflywheel/kek/internal/store"
	"github.com/theflywheel/kek/internal/wire"
)

// connHandler serves one accepted connection: a strictly sequential
// read-dispatch-write loop. A connection never has more than one
// request in flight, so responses are written in request order without
// any correlation bookkeeping beyond echoing the request's ID.
type connHandler struct {
	conn  net.Conn
	table *store.Table
	log   *zap.Logger
}

// serve runs the request loop until the connection is closed by the
// peer, a framing error occurs, or done is closed by the server during
// shutdown. It always closes conn before returning.
func (h *connHandler) serve(done <-chan struct{}) {
	defer h.conn.Close()

	if tcp, ok := h.conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			h.log.Warn("failed to set TCP_NODELAY", zap.Error(err), zap.Stringer("remote", h.conn.RemoteAddr()))
		}
	}

	closeOnDone := make(chan struct{})
	defer close(closeOnDone)
	go func() {
		select {
		case <-done:
			// Expire reads only: a pending read returns at once, while a
			// response already being written still goes out in full.
			h.conn.SetReadDeadline(time.Now())
		case <-closeOnDone:
		}
	}()

	for {
		frame, err := wire.ReadFrame(h.conn)
		if err != nil {
			select {
			case <-done:
			default:
				if !isExpectedCloseErr(err) {
					h.log.Warn("connection read failed", zap.Error(err), zap.Stringer("remote", h.conn.RemoteAddr()))
				}
			}
			return
		}

		if err := h.dispatch(frame); err != nil {
			h.log.Warn("connection request failed", zap.Error(err), zap.Stringer("remote", h.conn.RemoteAddr()))
			return
		}
	}
}

// dispatch decodes frame, executes it against the table, and writes the
// matching response frame. Any error here is connection-fatal: the
// wire protocol has no way to signal a per-request failure back to the
// client, so a bad frame or a rejected key ends the connection.
func (h *connHandler) dispatch(frame wire.Frame) error {
	switch frame.Type {
	case wire.TypePutRequest:
		req, err := wire.UnmarshalPutRequest(frame.Payload)
		if err != nil {
			return err
		}
		if err := h.table.Set([]byte(req.Key), req.Value); err != nil {
			return err
		}
		resp := wire.PutResponse{RequestID: req.RequestID}
		return wire.WriteFrame(h.conn, wire.TypePutResponse, resp.Marshal())

	case wire.TypeGetRequest:
		req, err := wire.UnmarshalGetRequest(frame.Payload)
		if err != nil {
			return err
		}
		value, err := h.table.Get([]byte(req.Key))
		if err != nil {
			return err
		}
		resp := wire.GetResponse{RequestID: req.RequestID, Value: value}
		return wire.WriteFrame(h.conn, wire.TypeGetResponse, resp.Marshal())

	default:
		return errUnknownFrameType
	}
}

var errUnknownFrameType = errors.New("server: unknown frame type")

// isExpectedCloseErr reports whether err is the unremarkable result of
// a peer closing the connection or of reading from a connection that is
// already closed, as opposed to a genuine protocol or I/O failure worth
// logging at warn level. Read errors during shutdown are not logged at
// all; serve checks for that case itself.
func isExpectedCloseErr(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}
