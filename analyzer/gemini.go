package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/config"
)

// analysisPrompt asks the model for a strict JSON answer. The model still
// sometimes wraps it in a markdown code fence, which parseAnalysis strips.
const analysisPrompt = `Analyze the food item in the image and estimate its total calories.
Respond in JSON format with two keys: 'description' (a brief, one-sentence description of the food) and 'calories' (an integer representing the estimated total calories).
Example: {"description": "A bowl of ramen and three gyoza dumplings.", "calories": 850}`

// GeminiClient calls the Gemini generateContent REST API. Every call is
// bounded by the configured timeout; a hung model never blocks a request
// indefinitely.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiClient builds a client from the analyzer configuration. An
// empty API key is tolerated here; calls will fail with a dependency error.
func NewGeminiClient(cfg *config.AnalyzerConfig) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AnalyzeMeal sends the image to the model and parses its JSON verdict.
// Transport failures, non-2xx answers, timeouts and unparseable replies are
// all reported as external-service errors.
func (c *GeminiClient) AnalyzeMeal(ctx context.Context, mimeType string, image []byte) (*Analysis, error) {
	if c.apiKey == "" {
		return nil, apperror.NewExternalServiceError("vision analyzer is not configured", nil)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: analysisPrompt},
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode analyzer request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.NewInternalError("failed to build analyzer request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.NewExternalServiceError("failed to reach vision analyzer", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.NewExternalServiceError("failed to read analyzer response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.NewExternalServiceError(
			fmt.Sprintf("vision analyzer returned status %d", resp.StatusCode), nil)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperror.NewExternalServiceError("failed to decode analyzer response", err)
	}

	text := ""
	if len(parsed.Candidates) > 0 {
		for _, part := range parsed.Candidates[0].Content.Parts {
			if part.Text != "" {
				text = part.Text
				break
			}
		}
	}
	if text == "" {
		return nil, apperror.NewExternalServiceError("vision analyzer returned no content", nil)
	}

	return parseAnalysis(text)
}

// parseAnalysis extracts the {description, calories} object from the model
// reply, tolerating a surrounding markdown code fence.
func parseAnalysis(text string) (*Analysis, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var raw struct {
		Description string  `json:"description"`
		Calories    float64 `json:"calories"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, apperror.NewExternalServiceError("vision analyzer returned malformed JSON", err)
	}

	analysis := &Analysis{
		Description: raw.Description,
		Calories:    int(raw.Calories),
	}
	if analysis.Description == "" {
		analysis.Description = "No description provided."
	}
	if analysis.Calories < 0 {
		analysis.Calories = 0
	}
	return analysis, nil
}
