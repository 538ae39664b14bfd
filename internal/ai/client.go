package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/pkg/models"
)

// ErrMissingAPIKey is returned when the client is constructed without a key
var ErrMissingAPIKey = errors.New("meditation API key is not configured")

const systemPrompt = `Tu es un guide de méditation bienveillant et sage.
Ton rôle est de créer une courte méditation guidée (5 à 10 lignes) basée sur une citation.
La méditation doit:
- Aider à contempler le sens profond de la citation
- Être pratique et actionnable
- Utiliser un ton doux et apaisant
- Inclure une invitation à respirer ou à se centrer
- Se terminer par une réflexion ou une intention à emporter

IMPORTANT: Détecte la langue de la citation (français ou anglais) et réponds UNIQUEMENT dans cette même langue.
Réponds avec un JSON valide contenant exactement ces champs:
{
  "meditation": "le texte de la méditation",
  "language": "fr" ou "en"
}`

// Client calls the chat-completions API that generates meditations
type Client struct {
	httpClient *http.Client
	cfg        config.MeditationConfig
	appURL     string
}

// Generation is a parsed meditation from the upstream model
type Generation struct {
	Meditation string
	Language   string
}

// NewClient creates a generation client
func NewClient(cfg config.MeditationConfig, appURL string) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		appURL:     appURL,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a meditation on the given quote. The model
// is instructed to answer with a JSON object; a non-JSON answer falls
// back to the raw text tagged as French.
func (c *Client) Generate(ctx context.Context, quoteText, author string) (*Generation, error) {
	userPrompt := fmt.Sprintf("Citation: %q", quoteText)
	if author != "" && author != models.DefaultAuthor {
		userPrompt += fmt.Sprintf("\nAuteur: %s", author)
	}
	userPrompt += "\n\nGénère une méditation guidée pour cette citation."

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", c.appURL)
	req.Header.Set("X-Title", "Presence Sentence")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generation API returned status %d: %s", resp.StatusCode, detail)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, errors.New("generation API returned an empty response")
	}

	return parseGeneration(parsed.Choices[0].Message.Content), nil
}

func parseGeneration(content string) *Generation {
	var out struct {
		Meditation string `json:"meditation"`
		Language   string `json:"language"`
	}

	if err := json.Unmarshal([]byte(content), &out); err == nil && out.Meditation != "" {
		lang := models.MeditationLanguageFR
		if out.Language == models.MeditationLanguageEN {
			lang = models.MeditationLanguageEN
		}
		return &Generation{Meditation: out.Meditation, Language: lang}
	}

	// Model ignored the JSON instruction: keep the raw text
	return &Generation{Meditation: content, Language: models.MeditationLanguageFR}
}
