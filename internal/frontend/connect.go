package frontend

import (
	"context"
	"time"

	"vmanager/internal/channel"
)

const dialTimeout = 10 * time.Second

// Connect dials the proxy for user and pumps inbound frames into the host until
// ctx is cancelled or the connection ends. The returned channel closes after the
// user is detached.
func (h *Host) Connect(ctx context.Context, url, user string) (<-chan struct{}, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := channel.Dial(dialCtx, url, user)
	if err != nil {
		return nil, err
	}
	if err := h.Attach(user, conn); err != nil {
		conn.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := conn.ReadLoop(func(data []byte) {
			_ = h.HandleFrame(user, data)
		}); err != nil {
			h.log.Warn().Err(err).Str("user", user).Msg("proxy connection lost")
		}
		_ = h.detachLink(user, conn)
	}()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-conn.Done():
		}
	}()

	return done, nil
}
