package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	evt := New(PhaseChanged, at, map[string]interface{}{"session_id": "abc", "to": "QA"})

	data, err := Encode(evt)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, PhaseChanged, got.EventType())
	assert.True(t, at.Equal(got.Timestamp()))
	assert.Equal(t, "QA", got.Payload()["to"])
}

func TestDecodeRejectsUntyped(t *testing.T) {
	_, err := Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
