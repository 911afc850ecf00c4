package adapter

import "time"

type Config struct {
	Token string
	// Proxy is an optional http(s)/socks5 URL for Bot API requests.
	Proxy        string
	PollTimeout  time.Duration
	RestartDelay time.Duration
	// Offline skips the getMe handshake. Used by tests.
	Offline bool
}
