package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joshsymonds/replygate/internal/gmail"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	apiURL           = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
)

const systemPrompt = `You draft concise, courteous email replies on behalf of the mailbox owner.
Reply with the body text only: no subject line, no signature block, no commentary.
Never invent account numbers, credentials, or other sensitive data.`

// Anthropic drafts replies with the Claude messages API.
type Anthropic struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewAnthropic returns a drafter using the default model and token budget.
func NewAnthropic(apiKey string) *Anthropic {
	return &Anthropic{
		APIKey:    apiKey,
		Model:     defaultModel,
		MaxTokens: defaultMaxTokens,
		Client:    &http.Client{},
	}
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Draft asks the model for a reply body to msg.
func (a *Anthropic) Draft(ctx context.Context, msg gmail.Message) (string, error) {
	model := a.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	client := a.Client
	if client == nil {
		client = &http.Client{}
	}

	prompt := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", msg.From, msg.Subject, msg.Body)
	payload, err := json.Marshal(apiRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []apiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode draft request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build draft request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call drafting API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read draft response: %w", err)
	}
	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode draft response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("drafting API %s: %s", decoded.Error.Type, decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drafting API returned status %d", resp.StatusCode)
	}

	var parts []string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	body := strings.TrimSpace(strings.Join(parts, "\n"))
	if body == "" {
		return "", fmt.Errorf("drafting API returned no text content")
	}
	return body, nil
}

var _ Drafter = (*Anthropic)(nil)
var _ Drafter = Template{}
