package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role
	Content string
}

// Params are the generation parameters sent with every model request.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}
