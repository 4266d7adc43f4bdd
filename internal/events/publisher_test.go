package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellerEvent_WireFormat(t *testing.T) {
	ev := SellerEvent{
		SellerID:   "s-1",
		Status:     "rejected",
		Reason:     "blurry ID",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "s-1", got["sellerId"])
	assert.Equal(t, "blurry ID", got["reason"])
	assert.Equal(t, "2026-03-01T12:00:00Z", got["occurredAt"])
	assert.NotContains(t, got, "email")
	assert.NotContains(t, got, "amount")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), SubjectSellerApproved, SellerEvent{SellerID: "s-1"}))
}
