package bridge

import (
	"context"
	"fmt"

	errs "imgharvest/pkg/errors"
)

// Client sends requests to an Agent
type Client struct {
	agent *Agent
}

// Send delivers req and waits for the answer. It returns ErrUnavailable when
// the agent is not running.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.agent == nil {
		return Response{}, ErrUnavailable
	}

	env := envelope{req: req, reply: make(chan Response, 1)}

	select {
	case c.agent.requests <- env:
	case <-c.agent.done:
		return Response{}, ErrUnavailable
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// GetImages asks the agent for the page's image URLs
func (c *Client) GetImages(ctx context.Context) ([]string, error) {
	resp, err := c.Send(ctx, Request{Action: ActionGetImages})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, fmt.Errorf("%s", resp.Error), "")
	}
	return resp.Images, nil
}
