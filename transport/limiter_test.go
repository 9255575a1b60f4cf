package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcceptLimiterPerHost(t *testing.T) {
	l := NewAcceptLimiter(1, 2)
	now := time.Unix(1000, 0)

	a := &net.TCPAddr{IP: net.ParseIP("192.168.1.2"), Port: 5000}
	aOtherPort := &net.TCPAddr{IP: net.ParseIP("192.168.1.2"), Port: 5001}
	b := &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 5000}

	assert.True(t, l.Allow(a, now))
	assert.True(t, l.Allow(aOtherPort, now))
	assert.False(t, l.Allow(a, now), "burst exhausted for host a")
	assert.True(t, l.Allow(b, now), "other hosts are unaffected")

	assert.True(t, l.Allow(a, now.Add(time.Second)), "token refilled after one second")
}

func TestAcceptLimiterDisabled(t *testing.T) {
	var l *AcceptLimiter = NewAcceptLimiter(0, 0)
	assert.Nil(t, l)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(&net.TCPAddr{IP: net.IPv4(1, 2, 3, 4)}, time.Now()))
	}
}
