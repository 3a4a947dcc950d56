package net

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"skoll/internal/book"
)

func createTestServer() *Server {
	b := book.New("AAPL", book.NewLedger(), nil)
	return New("127.0.0.1", 0, b)
}

func TestHandleMessage_CancelGetsAck(t *testing.T) {
	srv := createTestServer()

	// Wire a fake session in directly; net.Pipe blocks writes until read.
	client, session := net.Pipe()
	defer client.Close()
	srv.clientSessions["client"] = ClientSession{conn: session}

	go srv.handleMessage(ClientMessage{
		clientAddress: "client",
		message:       &CancelOrderMessage{OrderID: 7},
	})

	assert.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buffer := make([]byte, MAX_RECV_SIZE)
	n, err := client.Read(buffer)
	assert.NoError(t, err)

	report, err := ParseReport(buffer[:n])
	assert.NoError(t, err)
	assert.Equal(t, CancelAck, report.TypeOf)
	assert.Equal(t, uint64(7), report.OrderID)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := createTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	// Let Run reach Accept before pulling the plug.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on context cancellation")
	}
}
