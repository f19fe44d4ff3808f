package config

import "time"

// HTTP server timeouts
const (
	ServerReadHeaderTimeout = 15 * time.Second
	ServerIdleTimeout       = 120 * time.Second
	ServerShutdownTimeout   = 30 * time.Second
)

// WebSocket keepalive. PingInterval must stay below PongWait.
const (
	WSWriteWait    = 10 * time.Second
	WSPongWait     = 60 * time.Second
	WSPingInterval = (WSPongWait * 9) / 10
)

// Redis connectivity check at startup
const RedisPingTimeout = 5 * time.Second

// Window for the per-IP connect limiter
const ConnectRateWindow = time.Minute
