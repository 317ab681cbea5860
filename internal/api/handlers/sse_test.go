package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckwise-ai/deckwise/internal/models"
)

func TestSSEWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := newSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, stream.Send(sseEvent{Type: "token", Token: "Hello"}))
	require.NoError(t, stream.Send(sseEvent{
		Type: "done",
		QAID: "qa-123",
		Citations: []models.Citation{
			{PageNo: 2, ChunkIndex: 0, ChunkID: "d_2_0", Text: "cited"},
		},
	}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 2)

	var tok sseEvent
	require.True(t, strings.HasPrefix(frames[0], "data: "))
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &tok))
	assert.Equal(t, "token", tok.Type)
	assert.Equal(t, "Hello", tok.Token)

	var done sseEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &done))
	assert.Equal(t, "done", done.Type)
	assert.Equal(t, "qa-123", done.QAID)
	require.Len(t, done.Citations, 1)
	assert.Equal(t, 2, done.Citations[0].PageNo)
}
