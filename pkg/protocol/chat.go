package protocol

import "encoding/json"

type ActionType string

const (
	ActionStartRun     ActionType = "start_run"
	ActionEditArtifact ActionType = "edit_artifact"
)

// ProposedAction is a confirmation-gated side effect suggested by the
// assistant. Endpoint and Payload are opaque to the console: confirming POSTs
// the payload to the endpoint.
type ProposedAction struct {
	ID       string         `json:"id"`
	Type     ActionType     `json:"type"`
	Label    string         `json:"label"`
	Endpoint string         `json:"endpoint"`
	Payload  map[string]any `json:"payload,omitempty"`
	Confirm  string         `json:"confirm,omitempty"`
}

// ConfirmActionResult is shaped by the action type: start_run fills RunID,
// edit_artifact fills Version/ArtifactType/EntityID.
type ConfirmActionResult struct {
	RunID        string  `json:"run_id,omitempty"`
	Version      int     `json:"version,omitempty"`
	ArtifactType string  `json:"artifact_type,omitempty"`
	EntityID     *string `json:"entity_id,omitempty"`
}

type ChatEventType string

const (
	ChatEventText      ChatEventType = "text"
	ChatEventToolStart ChatEventType = "tool_start"
	ChatEventActions   ChatEventType = "actions"
	ChatEventDone      ChatEventType = "done"
	ChatEventError     ChatEventType = "error"
)

// ChatEvent is one frame of a streamed conversational turn.
type ChatEvent struct {
	Type    ChatEventType    `json:"type"`
	Content string           `json:"content,omitempty"`
	ID      string           `json:"id,omitempty"`
	Name    string           `json:"name,omitempty"`
	Actions []ProposedAction `json:"actions,omitempty"`
	Message string           `json:"message,omitempty"`
}

type ChatRequest struct {
	ProjectID string        `json:"project_id"`
	Message   string        `json:"message"`
	History   []ChatHistory `json:"history,omitempty"`
}

type ChatHistory struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProgressCardPayload is the JSON body of a progress-card chat message.
type ProgressCardPayload struct {
	RunID    string          `json:"run_id"`
	RecipeID string          `json:"recipe_id,omitempty"`
	Title    string          `json:"title,omitempty"`
	Extra    json.RawMessage `json:"extra,omitempty"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

type MessageKind string

const (
	MessageText         MessageKind = "text"
	MessageProgressCard MessageKind = "progress_card"
	MessageActionTaken  MessageKind = "action_taken"
	MessageError        MessageKind = "error"
)

// ActionTaken marks a message as the response to a proposed action. Its
// presence in the history hides the proposal's buttons for good.
type ActionTaken struct {
	ProposalID      string              `json:"proposal_id"`
	SourceMessageID string              `json:"source_message_id"`
	ActionType      ActionType          `json:"action_type"`
	Result          ConfirmActionResult `json:"result"`
}

type ChatMessage struct {
	ID          string           `json:"id"`
	Role        MessageRole      `json:"role"`
	Kind        MessageKind      `json:"kind"`
	Content     string           `json:"content"`
	Actions     []ProposedAction `json:"actions,omitempty"`
	ActionTaken *ActionTaken     `json:"action_taken,omitempty"`
	// ToolStatus is the transient "looking something up" line of a streaming
	// message. It is cleared on finalize.
	ToolStatus  string `json:"tool_status,omitempty"`
	Streaming   bool   `json:"streaming,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}
