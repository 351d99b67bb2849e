package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// udpListener captures StatsD datagrams for assertions.
func udpListener(t *testing.T) (net.PacketConn, chan string) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	lines := make(chan string, 16)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, _, rerr := conn.ReadFrom(buf)
			if rerr != nil {
				return
			}
			lines <- string(buf[:n])
		}
	}()
	return conn, lines
}

func receiveLine(t *testing.T, lines chan string) string {
	t.Helper()
	select {
	case line := <-lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
		return ""
	}
}

func TestCountFormat(t *testing.T) {
	t.Parallel()

	conn, lines := udpListener(t)
	client, err := NewClient(Config{Enabled: true, Address: conn.LocalAddr().String(), Prefix: "apextest"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Count("testrun.processing", 3, nil)
	assert.Equal(t, "apextest.testrun.processing:3|c", receiveLine(t, lines))
}

func TestCountWithSortedTags(t *testing.T) {
	t.Parallel()

	conn, lines := udpListener(t)
	client, err := NewClient(Config{Enabled: true, Address: conn.LocalAddr().String(), Prefix: "apextest"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Count("streaming.transport", 1, map[string]string{"state": "up", "channel": "TestResult"})
	assert.Equal(t, "apextest.streaming.transport:1|c|#channel:TestResult,state:up", receiveLine(t, lines))
}

func TestTimingFormat(t *testing.T) {
	t.Parallel()

	conn, lines := udpListener(t)
	client, err := NewClient(Config{Enabled: true, Address: conn.LocalAddr().String(), Prefix: "apextest"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Timing("poll.duration", 1500*time.Millisecond, nil)
	assert.Equal(t, "apextest.poll.duration:1500|ms", receiveLine(t, lines))
}

func TestMetricNameNormalization(t *testing.T) {
	t.Parallel()

	conn, lines := udpListener(t)
	client, err := NewClient(Config{Enabled: true, Address: conn.LocalAddr().String(), Prefix: ".apextest."})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Count("streaming/channel.events", 1, nil)
	assert.Equal(t, "apextest.streaming_channel.events:1|c", receiveLine(t, lines))
}

func TestDisabledClientNoops(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125"})
	require.NoError(t, err)

	assert.False(t, client.Enabled())
	assert.NotPanics(t, func() {
		client.Count("anything", 1, nil)
		client.Timing("anything", time.Second, nil)
	})
	assert.NoError(t, client.Close())
}

func TestNilClientSafe(t *testing.T) {
	t.Parallel()

	var client *Client
	assert.False(t, client.Enabled())
	assert.NotPanics(t, func() {
		client.Count("anything", 1, nil)
		client.Timing("anything", time.Second, nil)
	})
	assert.NoError(t, client.Close())
}

func TestEmptyAddressDisables(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "  "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}
