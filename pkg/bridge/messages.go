package bridge

import (
	errs "imgharvest/pkg/errors"
)

// ActionGetImages asks the page agent for the document's image URLs
const ActionGetImages = "getImages"

// Request is sent from the orchestrator to the page agent
type Request struct {
	Action string `json:"action"`
}

// Response is the page agent's answer to a Request
type Response struct {
	Images []string `json:"images"`
	// Error is set when the request could not be served
	Error string `json:"error,omitempty"`
}

// ErrUnavailable is returned when no page agent is listening
var ErrUnavailable = errs.New(errs.ErrorTypeDiscoveryUnavailable, "Unable to access current page")
