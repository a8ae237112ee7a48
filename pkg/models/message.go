package models

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies a message in the inter-context tagged union.
type MessageType string

const (
	MsgListingObserved       MessageType = "listing-observed"
	MsgOpenFeedbackSurface   MessageType = "open-feedback-surface"
	MsgGetCurrentState       MessageType = "get-current-state"
	MsgClearCache            MessageType = "clear-cache"
	MsgAnalysisResult        MessageType = "analysis-result"
	MsgAnalysisError         MessageType = "analysis-error"
	MsgRequestCurrentListing MessageType = "request-current-listing"
)

// Message is the unit of inter-context communication. Data is JSON so the
// same envelope travels over the in-process and Redis transports alike.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage builds a message envelope around a typed payload.
func NewMessage(msgType MessageType, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Data: data}, nil
}

// DecodeData unmarshals the message payload into out.
func (m Message) DecodeData(out any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// ListingObservedEvent announces a freshly extracted snapshot to the
// background context.
type ListingObservedEvent struct {
	Snapshot        ListingSnapshot `json:"snapshot"`
	OriginContextID string          `json:"origin_context_id"`
}

// AnalysisResultEvent carries a completed outcome back to the page context.
// Key tags the listing the pipeline was started for so a late result for a
// superseded listing is never rendered.
type AnalysisResultEvent struct {
	OriginContextID string          `json:"origin_context_id"`
	Key             string          `json:"key"`
	Outcome         AnalysisOutcome `json:"outcome"`
}

// AnalysisErrorEvent carries a classified failure back to the page context.
type AnalysisErrorEvent struct {
	OriginContextID string `json:"origin_context_id"`
	Key             string `json:"key"`
	Kind            string `json:"kind"`
	Hint            string `json:"hint"`
	Message         string `json:"message"`
}

// CurrentStateRequest asks the background context for the last outcome it
// produced for a page context.
type CurrentStateRequest struct {
	OriginContextID string `json:"origin_context_id"`
}

// ClearCacheRequest discards the stored result for one listing.
type ClearCacheRequest struct {
	Key string `json:"key"`
}

// OpenFeedbackSurfaceEvent asks the page context to surface the in-page
// feedback panel for a listing.
type OpenFeedbackSurfaceEvent struct {
	Key string `json:"key"`
}
