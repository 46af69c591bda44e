package server

import (
	"encoding/json"
	"fmt"

	"github.com/mpruett/studiohub/internal/types"
)

// Client to server event types.
const (
	EventJoinStudio  = "join_studio"
	EventLeaveStudio = "leave_studio"
	EventUpdateAsset = "update_asset"
	EventDeleteAsset = "delete_asset"
	EventAddComment  = "add_comment"
	EventCanvasNote  = "canvas_note_update"
	EventStudioChat  = "studio_chat"
	EventCursorMove  = "cursor_move"
)

// Server to client event types.
const (
	EventActiveUsers       = "active_users"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventAssetUpdated      = "asset_updated"
	EventAssetDeleted      = "asset_deleted"
	EventCommentAdded      = "comment_added"
	EventCanvasNoteUpdated = "canvas_note_updated"
	EventCursorMoved       = "cursor_moved"
)

// ClientMessage is the envelope for every event a connection sends. Payload
// and Cursor are kept raw: the server relays them verbatim and never
// interprets their contents.
type ClientMessage struct {
	Type     string          `json:"type"`
	StudioId string          `json:"studioId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	AssetId  string          `json:"assetId,omitempty"`
	Cursor   json.RawMessage `json:"cursor,omitempty"`
	client   *Client
}

// ServerMessage is the envelope for every event delivered to a connection.
// StudioId is always set so a client joined to several studios can
// demultiplex.
type ServerMessage struct {
	Type     string          `json:"type"`
	StudioId string          `json:"studioId"`
	Users    []types.User    `json:"users,omitempty"`
	User     *types.User     `json:"user,omitempty"`
	UserId   string          `json:"userId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ActiveUsers is sent to a joining connection only, after its own presence
// has been recorded, so the joiner sees itself in the list.
func ActiveUsers(studioId string, users []types.User) *ServerMessage {
	return &ServerMessage{
		Type:     EventActiveUsers,
		StudioId: studioId,
		Users:    users,
	}
}

func UserJoined(studioId string, user types.User) *ServerMessage {
	u := user.Presence()
	return &ServerMessage{
		Type:     EventUserJoined,
		StudioId: studioId,
		User:     &u,
	}
}

func UserLeft(studioId, userId string) *ServerMessage {
	return &ServerMessage{
		Type:     EventUserLeft,
		StudioId: studioId,
		UserId:   userId,
	}
}

// Relayed wraps a verbatim client payload under the given server event type.
func Relayed(eventType, studioId string, payload json.RawMessage) *ServerMessage {
	return &ServerMessage{
		Type:     eventType,
		StudioId: studioId,
		Payload:  payload,
	}
}

func AssetDeleted(studioId, assetId string) *ServerMessage {
	payload, _ := json.Marshal(map[string]string{"assetId": assetId})
	return Relayed(EventAssetDeleted, studioId, payload)
}

// CursorMoved stamps the sender's user id into the cursor object before
// relay, since the cursor payload itself may omit it. Returns an error when
// the cursor is not a JSON object.
func CursorMoved(studioId string, cursor json.RawMessage, userId string) (*ServerMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(cursor, &fields); err != nil {
		return nil, err
	}
	// a JSON null decodes without error but leaves the map nil
	if fields == nil {
		return nil, fmt.Errorf("cursor is not an object")
	}
	fields["userId"] = userId

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	return Relayed(EventCursorMoved, studioId, payload), nil
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}
