package assistant

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in a matching session.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// StartRequest opens a new matching session.
type StartRequest struct {
	ClientID string `json:"client_id"`
	Goal     string `json:"goal"`
}

// StartResponse returns the new session id and the opening reply.
type StartResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// MessageRequest continues an existing session.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// MessageResponse is the assistant's reply for one turn.
type MessageResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}
