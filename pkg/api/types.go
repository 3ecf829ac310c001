package api

import "encoding/json"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []ClientMessage `json:"messages"`
}

// ClientMessage is a single message in the client's conversation history.
type ClientMessage struct {
	Role                    string             `json:"role"`
	Content                 string             `json:"content"`
	ExperimentalAttachments []ClientAttachment `json:"experimental_attachments,omitempty"`
	ToolInvocations         []ToolInvocation   `json:"toolInvocations,omitempty"`
}

// ClientAttachment is a file attached to a client message. Only image and
// text content types are forwarded to the model.
type ClientAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// ToolInvocation is a tool call the client has already seen resolved in an
// earlier turn, replayed so the model sees its own call and the result.
type ToolInvocation struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
	Result     json.RawMessage `json:"result"`
}

// Message roles accepted from the client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Protocol selects the framing of the streamed response.
type Protocol string

const (
	// ProtocolText streams raw text fragments without framing.
	ProtocolText Protocol = "text"

	// ProtocolData streams newline-terminated, prefixed data frames.
	ProtocolData Protocol = "data"
)

// DefaultProtocol is used when the request does not select one.
const DefaultProtocol = ProtocolData

// ParseProtocol converts a query parameter value to a Protocol. An empty
// value selects DefaultProtocol.
func ParseProtocol(s string) (Protocol, *APIError) {
	switch Protocol(s) {
	case "":
		return DefaultProtocol, nil
	case ProtocolText, ProtocolData:
		return Protocol(s), nil
	default:
		return "", NewInvalidRequestError("protocol", `protocol must be "text" or "data", got "`+s+`"`)
	}
}
