package advisor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"

	availabilityTimeout = 2 * time.Second
)

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	URL   string
	Model string
}

// OllamaBackend asks a local Ollama model for provider advice.
type OllamaBackend struct {
	cfg    OllamaConfig
	llm    llms.Model
	client *http.Client
}

// NewOllamaBackend creates a backend for the configured server and model.
func NewOllamaBackend(cfg OllamaConfig) (*OllamaBackend, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	llm, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	return &OllamaBackend{
		cfg:    cfg,
		llm:    llm,
		client: &http.Client{Timeout: availabilityTimeout},
	}, nil
}

// Available probes the model listing endpoint.
func (b *OllamaBackend) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.URL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Advise sends the prompt and returns the model's raw reply.
func (b *OllamaBackend) Advise(ctx context.Context, req AdviceRequest) (*AdviceResponse, error) {
	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, b.llm, BuildPrompt(req), llms.WithTemperature(req.Temperature))
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	return &AdviceResponse{
		Text:     text,
		Model:    b.cfg.Model,
		Duration: time.Since(start),
	}, nil
}

// BuildPrompt renders the advisory prompt with the expected reply format.
func BuildPrompt(req AdviceRequest) string {
	var b strings.Builder
	b.WriteString("You are choosing which AI coding tool should handle a development task.\n\n")
	b.WriteString(req.TaskDescription)
	b.WriteString("\n\nAvailable providers: ")
	b.WriteString(strings.Join(req.CandidateProviders, ", "))
	b.WriteString("\n\nAnswer using exactly this format:\n")
	b.WriteString("Recommended provider: <one provider from the list>\n")
	b.WriteString("Reasoning: <one or two sentences>\n")
	b.WriteString("Alternatives: <comma-separated providers, or none>\n")
	b.WriteString("Confidence score: <0-100>%\n")
	return b.String()
}
