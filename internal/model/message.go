package model

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Label is the display name used by the chat transcript.
func (s Sender) Label() string {
	if s == SenderAssistant {
		return "Montreal Bot"
	}
	return "You"
}

// ChatMessage is one entry of a document conversation. CreatedAt is nil for
// messages synthesized locally (greeting, error replies).
type ChatMessage struct {
	Sender    Sender     `json:"sender"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ChatRequest is the body of POST /chat/{id}.
type ChatRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ChatResponse is the reply of POST /chat/{id}.
type ChatResponse struct {
	Author    string     `json:"author"`
	Response  string     `json:"response"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

const AuthorModel = "MODEL"

func (r ChatResponse) Message() ChatMessage {
	sender := SenderUser
	if r.Author == AuthorModel {
		sender = SenderAssistant
	}
	return ChatMessage{
		Sender:    sender,
		Text:      r.Response,
		CreatedAt: r.CreatedAt,
	}
}
