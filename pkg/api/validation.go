package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages       int
	MaxContentSize    int
	MaxAttachments    int
	MaxToolInvocation int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:       1000,
		MaxContentSize:    1024 * 1024, // 1MB per message
		MaxAttachments:    16,
		MaxToolInvocation: 64,
	}
}

var validRoles = map[string]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
	RoleTool:      true,
}

// ValidateChatRequest checks a ChatRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
func ValidateChatRequest(req *ChatRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d", cfg.MaxMessages))
	}

	for i, msg := range req.Messages {
		param := fmt.Sprintf("messages[%d]", i)

		if !validRoles[msg.Role] {
			return NewInvalidRequestError(param+".role",
				fmt.Sprintf("role must be one of system, user, assistant, tool; got %q", msg.Role))
		}

		if cfg.MaxContentSize > 0 && len(msg.Content) > cfg.MaxContentSize {
			return NewInvalidRequestError(param+".content",
				fmt.Sprintf("content exceeds maximum size of %d bytes", cfg.MaxContentSize))
		}

		if cfg.MaxAttachments > 0 && len(msg.ExperimentalAttachments) > cfg.MaxAttachments {
			return NewInvalidRequestError(param+".experimental_attachments",
				fmt.Sprintf("attachments exceed maximum of %d", cfg.MaxAttachments))
		}
		for j, att := range msg.ExperimentalAttachments {
			if strings.TrimSpace(att.ContentType) == "" {
				return NewInvalidRequestError(
					fmt.Sprintf("%s.experimental_attachments[%d].contentType", param, j),
					"contentType is required")
			}
		}

		if cfg.MaxToolInvocation > 0 && len(msg.ToolInvocations) > cfg.MaxToolInvocation {
			return NewInvalidRequestError(param+".toolInvocations",
				fmt.Sprintf("toolInvocations exceed maximum of %d", cfg.MaxToolInvocation))
		}
		for j, inv := range msg.ToolInvocations {
			invParam := fmt.Sprintf("%s.toolInvocations[%d]", param, j)
			if inv.ToolCallID == "" {
				return NewInvalidRequestError(invParam+".toolCallId", "toolCallId is required")
			}
			if inv.ToolName == "" {
				return NewInvalidRequestError(invParam+".toolName", "toolName is required")
			}
			if len(inv.Args) > 0 && !json.Valid(inv.Args) {
				return NewInvalidRequestError(invParam+".args", "args must be valid JSON")
			}
		}
	}

	return nil
}
