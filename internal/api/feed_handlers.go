package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/feed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin dashboards are expected; auth happens via token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleFeed upgrades to a WebSocket and streams full snapshots of one
// scoped collection. Every relevant change produces a fresh snapshot;
// the client replaces its view wholesale on each message.
//
// Query parameters: collection (leads|users|activity), scope
// (owner|parent|role, default owner), site (defaults to the caller's
// affiliation).
func (s *RESTServer) HandleFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	collection := feed.Collection(r.URL.Query().Get("collection"))
	if !collection.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	siteID := r.URL.Query().Get("site")
	if siteID == "" {
		siteID = scopeOf(caller)
	}
	if siteID == "" {
		s.respondError(w, http.StatusBadRequest, "site is required")
		return
	}

	var scope feed.Scope
	switch r.URL.Query().Get("scope") {
	case "", "owner":
		scope = feed.OwnerScope(siteID)
	case "parent":
		scope = feed.ParentScope(siteID)
	case "role":
		scope = feed.RoleScope(siteID)
	default:
		s.respondError(w, http.StatusBadRequest, "unknown scope")
		return
	}

	if err := feed.Authorize(caller, scope); err != nil {
		if errors.Is(err, feed.ErrForbidden) {
			s.respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub, err := s.hub.Subscribe(r.Context(), caller.ID.String(), collection, scope)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, "failed to establish feed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	go s.feedWriteLoop(conn, sub)
	s.feedReadLoop(conn, sub)
}

// feedWriteLoop pushes snapshots until the subscription closes.
func (s *RESTServer) feedWriteLoop(conn *websocket.Conn, sub *feed.Subscription) {
	for snap := range sub.C {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			log.Debug().Err(err).Msg("Feed write failed, closing")
			sub.Cancel()
			conn.Close()
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
}

// feedReadLoop drains client frames so pings are answered and tears the
// subscription down when the client goes away.
func (s *RESTServer) feedReadLoop(conn *websocket.Conn, sub *feed.Subscription) {
	defer sub.Cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
