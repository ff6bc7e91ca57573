package core

// Message roles understood by the gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Finish reasons reported by the gateway in a choice.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonFunctionCall  = "function_call"
	FinishReasonContentFilter = "content_filter"
)

// Message represents a single message in a chat exchange. Messages are
// immutable once appended to a conversation; ordering is turn order.
type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// FunctionCall describes a function invocation requested by the model.
// Arguments is the raw JSON argument object as emitted by the gateway.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionDef declares a function the model may call. Parameters carries
// the JSON Schema for the arguments, passed through untouched.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatRequest represents a chat completion request sent to the gateway.
type ChatRequest struct {
	Model        string        `json:"model"`
	Messages     []Message     `json:"messages"`
	Temperature  *float64      `json:"temperature,omitempty"`
	MaxTokens    *int          `json:"max_tokens,omitempty"`
	Stream       bool          `json:"stream,omitempty"`
	Functions    []FunctionDef `json:"functions,omitempty"`
	FunctionCall string        `json:"function_call,omitempty"`
}

// WithStreaming returns a shallow copy of the request with Stream set to true.
// This avoids mutating the caller's request object.
func (r *ChatRequest) WithStreaming() *ChatRequest {
	cp := *r
	cp.Stream = true
	return &cp
}

// ChatResponse represents the chat completion response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object,omitempty"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Created int64    `json:"created"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EmbeddingRequest represents an embeddings request sent to the gateway.
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	User  string   `json:"user,omitempty"`
}

// Embedding is a single embedding vector in an embeddings response.
type Embedding struct {
	Object    string    `json:"object,omitempty"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingResponse represents the embeddings response.
type EmbeddingResponse struct {
	Object string      `json:"object,omitempty"`
	Model  string      `json:"model"`
	Data   []Embedding `json:"data"`
	Usage  Usage       `json:"usage"`
}

// ModelParams holds generation parameters attached to a prompt template.
// Extra is an open but typed extension map; see ParamValue.
type ModelParams struct {
	Temperature *float64              `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   *int                  `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TopP        *float64              `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	Extra       map[string]ParamValue `json:"extra,omitempty" yaml:"extra,omitempty"`
}
