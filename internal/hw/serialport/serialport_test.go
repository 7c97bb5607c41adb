package serialport

import (
	"bufio"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// recordingPort records writes and can be told to fail.
type recordingPort struct {
	writes [][]byte
	fail   error
	closed bool
}

func (p *recordingPort) Write(b []byte) (int, error) {
	if p.fail != nil {
		return 0, p.fail
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *recordingPort) Close() error {
	p.closed = true
	return nil
}

func TestTransport_SendRequiresConnection(t *testing.T) {
	tr := NewWithOpener("test", func() (Port, error) { return &recordingPort{}, nil })

	assert.False(t, tr.IsConnected())
	assert.ErrorIs(t, tr.Send([]byte("0101U\r")), ErrNotConnected)

	require.NoError(t, tr.Reconnect())
	assert.True(t, tr.IsConnected())
	assert.NoError(t, tr.Send([]byte("0101U\r")))
}

func TestTransport_WriteErrorDropsPort(t *testing.T) {
	port := &recordingPort{fail: errors.New("input/output error")}
	tr := NewWithOpener("test", func() (Port, error) { return port, nil })
	require.NoError(t, tr.Reconnect())

	err := tr.Send([]byte("0101D\r"))
	require.Error(t, err)
	assert.False(t, tr.IsConnected(), "port should be dropped after a write error")
	assert.True(t, port.closed)
}

func TestTransport_ReconnectReplacesPort(t *testing.T) {
	var opened []*recordingPort
	tr := NewWithOpener("test", func() (Port, error) {
		p := &recordingPort{}
		opened = append(opened, p)
		return p, nil
	})

	require.NoError(t, tr.Reconnect())
	require.NoError(t, tr.Reconnect())
	require.Len(t, opened, 2)
	assert.True(t, opened[0].closed)
	assert.False(t, opened[1].closed)

	require.NoError(t, tr.Send([]byte("0102S\r")))
	assert.Empty(t, opened[0].writes)
	assert.Equal(t, [][]byte{[]byte("0102S\r")}, opened[1].writes)
}

func TestTransport_OpenFailure(t *testing.T) {
	tr := NewWithOpener("test", func() (Port, error) { return nil, errors.New("no such file") })
	assert.Error(t, tr.Reconnect())
	assert.False(t, tr.IsConnected())
}

func TestTransport_Mock(t *testing.T) {
	tr := New(Config{}, true)
	assert.Equal(t, "mock", tr.Endpoint())
	require.NoError(t, tr.Reconnect())
	assert.NoError(t, tr.Send([]byte("0101U\r")))
	assert.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
}

func TestTransport_TCPEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\r')
		got <- line
	}()

	tr := New(Config{Device: "tcp://" + ln.Addr().String()}, false)
	require.NoError(t, tr.Reconnect())
	require.NoError(t, tr.Send([]byte("0107U\r")))

	select {
	case line := <-got:
		assert.Equal(t, "0107U\r", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
	}
	assert.NoError(t, tr.Close())
}

func TestTransport_SerialMissingDevice(t *testing.T) {
	tr := New(Config{Device: ""}, false)
	assert.Error(t, tr.Reconnect())
}

func TestIsDisconnectionError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"port_closed", &serial.PortError{}, false},
		{"broken_pipe", errors.New("write: broken pipe"), true},
		{"io_error", errors.New("read /dev/ttyUSB0: input/output error"), true},
		{"other", errors.New("invalid argument"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isDisconnectionError(tc.err))
		})
	}
}
