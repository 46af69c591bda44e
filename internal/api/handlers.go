package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/mpruett/studiohub/internal/server"
	"github.com/mpruett/studiohub/internal/types"
	"github.com/teris-io/shortid"
)

func (s *StudioApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *StudioApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

type PresenceResponse struct {
	StudioId string       `json:"studioId"`
	Users    []types.User `json:"users"`
}

// studioPresence returns the current occupants of a studio, the same view a
// joining connection receives as its active_users snapshot.
func (s *StudioApp) studioPresence(w http.ResponseWriter, r *http.Request) {
	studioId := r.PathValue("id")
	if studioId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, PresenceResponse{
		StudioId: studioId,
		Users:    s.ss.Presence(studioId),
	})
}

func (s *StudioApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients send no origin header
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	connId, err := shortid.Generate()
	if err != nil {
		s.log.Println("error generating connection id:", err)
		conn.Close()
		return
	}

	client := server.NewClient(connId, user, conn, s.ss, s.log)

	s.ss.RegisterClient(client)
	go client.Write()
	go client.Read()
}
