package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

func startAgent(t *testing.T, c Collector) *Agent {
	t.Helper()
	a := NewAgent(c, logger.NewTestLogger())
	a.Start(context.Background())
	t.Cleanup(a.Stop)
	return a
}

func TestGetImages(t *testing.T) {
	a := startAgent(t, CollectorFunc(func() []string {
		return []string{"https://example.com/a.png", "https://example.com/b.jpg"}
	}))

	images, err := a.Client().GetImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.png", "https://example.com/b.jpg"}, images)
}

func TestGetImagesEmptyIsNotNil(t *testing.T) {
	a := startAgent(t, CollectorFunc(func() []string { return nil }))

	images, err := a.Client().GetImages(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}

func TestUnknownAction(t *testing.T) {
	a := startAgent(t, CollectorFunc(func() []string { return nil }))

	resp, err := a.Client().Send(context.Background(), Request{Action: "getLinks"})
	require.NoError(t, err)
	assert.Contains(t, resp.Error, "getLinks")
	assert.Nil(t, resp.Images)
}

func TestStoppedAgentIsUnavailable(t *testing.T) {
	a := NewAgent(CollectorFunc(func() []string { return nil }), logger.NewTestLogger())
	a.Start(context.Background())
	a.Stop()

	_, err := a.Client().GetImages(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, errs.Is(err, errs.ErrorTypeDiscoveryUnavailable))

	var nilClient *Client
	_, err = nilClient.GetImages(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHandlerPanicIsAnswered(t *testing.T) {
	a := startAgent(t, CollectorFunc(func() []string { panic("document detached") }))

	_, err := a.Client().GetImages(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeDiscoveryUnavailable))
	assert.Contains(t, err.Error(), "document detached")
}

func TestSendHonoursContext(t *testing.T) {
	release := make(chan struct{})
	a := startAgent(t, CollectorFunc(func() []string {
		<-release
		return nil
	}))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Client().GetImages(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageWireFormat(t *testing.T) {
	b, err := json.Marshal(Request{Action: ActionGetImages})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"getImages"}`, string(b))

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"images":["https://example.com/a.png"]}`), &resp))
	assert.Equal(t, []string{"https://example.com/a.png"}, resp.Images)
	assert.Empty(t, resp.Error)
}
