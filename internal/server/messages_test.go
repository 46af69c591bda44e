package server

import (
	"encoding/json"
	"testing"

	"github.com/mpruett/studiohub/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestActiveUsers(t *testing.T) {
	msg := ActiveUsers("studio-1", []types.User{{Id: "A", Name: "Ada"}})

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected no error serializing message")
	assert.JSONEq(t,
		`{"type":"active_users","studioId":"studio-1","users":[{"userId":"A","name":"Ada"}]}`,
		string(bytes), "expected active_users wire format")
}

func TestUserJoined(t *testing.T) {
	msg := UserJoined("studio-1", types.User{Id: "A", Name: "Ada", Role: "EDITOR"})

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected no error serializing message")
	assert.JSONEq(t,
		`{"type":"user_joined","studioId":"studio-1","user":{"userId":"A","name":"Ada"}}`,
		string(bytes), "expected role claim to be stripped from presence payload")
}

func TestUserLeft(t *testing.T) {
	msg := UserLeft("studio-1", "A")

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected no error serializing message")
	assert.JSONEq(t,
		`{"type":"user_left","studioId":"studio-1","userId":"A"}`,
		string(bytes), "expected user_left wire format")
}

func TestRelayed(t *testing.T) {
	payload := json.RawMessage(`{"assetId":"asset-1","title":"draft"}`)
	msg := Relayed(EventAssetUpdated, "studio-1", payload)

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected no error serializing message")
	assert.JSONEq(t,
		`{"type":"asset_updated","studioId":"studio-1","payload":{"assetId":"asset-1","title":"draft"}}`,
		string(bytes), "expected payload to be relayed verbatim")
}

func TestAssetDeleted(t *testing.T) {
	msg := AssetDeleted("studio-1", "asset-1")

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected no error serializing message")
	assert.JSONEq(t,
		`{"type":"asset_deleted","studioId":"studio-1","payload":{"assetId":"asset-1"}}`,
		string(bytes), "expected asset id to be wrapped in the payload")
}

func TestCursorMoved(t *testing.T) {
	t.Run("stamps the sender id", func(t *testing.T) {
		msg, err := CursorMoved("studio-1", json.RawMessage(`{"x":5,"y":9}`), "A")
		assert.NoError(t, err, "expected no error stamping cursor payload")

		bytes, err := serializeMessage(msg)
		assert.NoError(t, err, "expected no error serializing message")
		assert.JSONEq(t,
			`{"type":"cursor_moved","studioId":"studio-1","payload":{"x":5,"y":9,"userId":"A"}}`,
			string(bytes), "expected sender id stamped into cursor payload")
	})

	t.Run("overwrites a spoofed sender id", func(t *testing.T) {
		msg, err := CursorMoved("studio-1", json.RawMessage(`{"x":1,"userId":"Z"}`), "A")
		assert.NoError(t, err, "expected no error stamping cursor payload")

		var decoded struct {
			Payload map[string]any `json:"payload"`
		}
		bytes, _ := serializeMessage(msg)
		assert.NoError(t, json.Unmarshal(bytes, &decoded), "expected payload to decode")
		assert.Equal(t, "A", decoded.Payload["userId"], "expected the verified identity to win")
	})

	t.Run("rejects a non-object cursor", func(t *testing.T) {
		_, err := CursorMoved("studio-1", json.RawMessage(`[1,2]`), "A")
		assert.Error(t, err, "expected error for non-object cursor payload")
	})

	t.Run("rejects a null cursor", func(t *testing.T) {
		_, err := CursorMoved("studio-1", json.RawMessage(`null`), "A")
		assert.Error(t, err, "expected error for null cursor payload")
	})
}
