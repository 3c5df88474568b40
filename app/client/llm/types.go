package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleDeveloper = "developer"
)

// StatusIncomplete is reported when generation stopped early, usually on the
// output token cap.
const StatusIncomplete = "incomplete"

type Message struct {
	Role    string `yaml:"role" json:"role" validate:"required"`
	Content string `yaml:"content" json:"content"`
}

type Request struct {
	Model              string
	Messages           []Message
	Temperature        *float64
	MaxOutputTokens    int64
	PreviousResponseID string
	// WebSearch offers the hosted web search tool to the model
	WebSearch bool
	// SearchContextSize is low, medium or high; empty keeps the server default
	SearchContextSize string
}

type Response struct {
	ID     string
	Text   string
	Status string
}

func Float(v float64) *float64 {
	return &v
}
