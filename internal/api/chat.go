package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forge/composer/engine/core"
)

// chatMessage mirrors the OpenAI chat message shape.
type chatMessage struct {
	Role    string `json:"role"    validate:"required"`
	Content string `json:"content" validate:"required"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages" validate:"required,min=1,dive"`
	Stream      bool          `json:"stream,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatResponse is OpenAI-shaped; Usage is a word-count approximation only,
// advisory rather than billing-accurate.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// intentRule is one ordered entry of the keyword classifier: the first
// rule whose pattern matches (case-insensitive substring) wins.
type intentRule struct {
	patterns []string
	intent   string
}

var intentRules = []intentRule{
	{patterns: []string{"compose", "scaffold", "create system"}, intent: "compose"},
	{patterns: []string{"list templates", "show templates"}, intent: "list_templates"},
	{patterns: []string{"status", "health"}, intent: "health"},
}

func classifyIntent(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range intentRules {
		for _, p := range rule.patterns {
			if strings.Contains(lower, p) {
				return rule.intent
			}
		}
	}
	return "general"
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondProblem(c, &core.Problem{Status: http.StatusBadRequest, Title: "malformed JSON", Detail: err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		RespondProblem(c, &core.Problem{
			Status: http.StatusUnprocessableEntity,
			Title:  "messages required",
			Detail: "at least one message is required",
		})
		return
	}

	userMessage := lastUserMessage(req.Messages)
	intent := classifyIntent(userMessage)
	content := s.intentContent(intent)

	promptTokens := wordCount(userMessage)
	completionTokens := wordCount(content)

	c.JSON(http.StatusOK, chatResponse{
		ID:      "chatcmpl-" + intent,
		Object:  "chat.completion",
		Created: time.Now().UTC().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return messages[len(messages)-1].Content
}

func (s *Server) intentContent(intent string) string {
	switch intent {
	case "compose":
		return "Submit your manifest to POST /compose. Sample: " +
			`{"manifest_version":"1.0","system_name":"demo-x","org":"acme",` +
			`"components":{"backend":{"template":"fastapi"}}}`
	case "list_templates":
		return "Use POST /discover with {\"operation\":\"list_templates\",\"params\":{\"category\":\"backend\"}}."
	case "health":
		return "Service is reachable. See GET /health for the live status payload."
	default:
		return "I can scaffold systems (compose), list templates, or report health. " +
			"Ask me to \"create a system\", \"list templates\", or check \"status\"."
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
