package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades requests to a Conn and hands it to serve. The user identity
// comes from the X-VManager-User header, or the "user" query parameter for
// clients that cannot set headers.
func Handler(serve func(*Conn)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			user = r.URL.Query().Get("user")
		}
		if user == "" {
			http.Error(w, "missing user identity", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		conn := newConn(ws, user)
		conn.log.Debug().Str("remote", r.RemoteAddr).Msg("connection opened")
		serve(conn)
	}
}

// Dial opens the channel for one user.
func Dial(ctx context.Context, url, user string) (*Conn, error) {
	header := http.Header{}
	header.Set(UserHeader, user)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(ws, user), nil
}
