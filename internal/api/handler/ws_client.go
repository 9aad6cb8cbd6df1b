package handler

import (
	"context"
	"encoding/json"
	"time"

	"pairchat/backend/internal/match"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientCommand is the inbound WebSocket frame.
type clientCommand struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsClient bridges one WebSocket connection to one room session: inbound
// frames become session calls, session events become outbound frames.
type wsClient struct {
	conn    *websocket.Conn
	session *match.Session
	userID  string
	log     *logrus.Entry
}

func newWSClient(conn *websocket.Conn, session *match.Session, userID string) *wsClient {
	return &wsClient{
		conn:    conn,
		session: session,
		userID:  userID,
		log: logrus.WithFields(logrus.Fields{
			"component": "ws_client",
			"user_id":   userID,
		}),
	}
}

// run starts the session and both pumps and blocks until the connection
// drops. Leaving the room on disconnect matches the navigate-away cleanup a
// browser client performs.
func (c *wsClient) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer c.session.Leave(ctx)
	defer c.conn.Close()

	if err := c.session.Start(ctx); err != nil {
		c.log.WithError(err).Error("session start failed")
		return
	}

	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *wsClient) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("read failed")
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.log.WithError(err).Warn("undecodable client frame")
			continue
		}

		switch cmd.Type {
		case "message":
			// Send failures surface on the event stream already.
			_ = c.session.Send(ctx, cmd.Content)
		case "leave":
			return
		default:
			c.log.WithField("type", cmd.Type).Warn("unknown client command")
		}
	}
}

func (c *wsClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case ev := <-c.session.Events():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(ev)
			if err != nil {
				c.log.WithError(err).Warn("event encoding failed")
				continue
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Drain whatever queued up behind this event into the same frame
			// batch before paying the next writer setup.
			n := len(c.session.Events())
			for i := 0; i < n; i++ {
				extra, err := json.Marshal(<-c.session.Events())
				if err != nil {
					continue
				}
				w.Write([]byte{'\n'})
				w.Write(extra)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
