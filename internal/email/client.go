package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/presence-app/presence/internal/config"
)

// Client delivers transactional email through an HTTP email provider
type Client struct {
	httpClient *http.Client
	cfg        config.EmailConfig
	appURL     string
}

// NewClient creates an email client
func NewClient(cfg config.EmailConfig, appURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		appURL:     appURL,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts a single email to the provider
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	body, err := json.Marshal(sendRequest{
		From:    c.cfg.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call email API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("email API returned status %d: %s", resp.StatusCode, detail)
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode email response: %w", err)
	}

	return parsed.ID, nil
}

// SendVerification sends the email-verification message for a fresh account
func (c *Client) SendVerification(ctx context.Context, to, pseudo, token string) (string, error) {
	verificationURL := fmt.Sprintf("%s/verify-email/%s", c.appURL, token)

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		  <h2>Bonjour %s !</h2>
		  <p>Merci de vous être inscrit sur Citation Présence.</p>
		  <p>Cliquez sur le bouton ci-dessous pour vérifier votre email :</p>
		  <a href="%s"
		     style="display: inline-block; background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; margin: 16px 0;">
		    Vérifier mon email
		  </a>
		  <p style="color: #666; font-size: 14px;">
		    Ou copiez ce lien : %s
		  </p>
		  <p style="color: #666; font-size: 12px;">
		    Ce lien expire dans 24 heures.
		  </p>
		</div>
	`, pseudo, verificationURL, verificationURL)

	return c.Send(ctx, to, "Vérifiez votre email - Citation Présence", html)
}
