package live

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = time.Second
	// Maximum message size allowed from the peer. Summaries are the largest
	// input and are bounded well below this.
	maxMessageSize = 16 << 10

	pingPeriod = 10 * time.Second
	// Number of lost pings tolerated before the peer is considered gone.
	pongWait = pingPeriod * 3

	semaphoreWait = time.Second
)

// ErrSockCongestion indicates there are too many waiters on the socket for a
// given op.
var ErrSockCongestion = errors.New("live: socket op failed due to congestion")

// ErrPongDeadlineExceeded is returned when the peer stopped answering pings.
var ErrPongDeadlineExceeded = errors.New("live: client disconnect, pong deadline exceeded")

// websock serializes reads and writes to the websocket, which allows one
// concurrent reader and one concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

func (sock *websock) read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(semaphoreWait):
		return ErrSockCongestion
	}
}

func (sock *websock) write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		if err := sock.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return writeFn(sock.ws)
	case <-time.After(semaphoreWait):
		return ErrSockCongestion
	}
}

// close sends a normal closure and drops the connection. Writers still
// holding the semaphore are given writeWait to finish.
func (sock *websock) close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = sock.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-sock.writeSem
	case <-time.After(writeWait):
	}
	_ = sock.ws.Close()
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}
