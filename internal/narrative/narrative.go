// Package narrative asks the text-generation collaborator to write a prose
// assessment of a scored listing. The collaborator is a black box: a score
// bundle goes in, free text comes out.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// ModelChoice selects the generation model tier.
type ModelChoice string

const (
	ModelFast ModelChoice = "fast"
	ModelDeep ModelChoice = "deep"
)

// FallbackMessage is what callers get when generation fails. Analyses keep
// their score either way; the narrative is the one part allowed to degrade.
const FallbackMessage = "A detailed narrative could not be generated for this analysis. " +
	"The score and breakdown above are complete and unaffected."

const builtinPrompt = `You are a local-business marketing consultant. A business listing
was analyzed and scored {{.FinalScore}} out of 10. Review the data below and write a
professional assessment of the listing's health: what is working, what is hurting the
score, and the three highest-impact improvements the owner should make.

Listing data:
{{.BundleJSON}}
`

// Client calls the narrative-generation HTTP service.
type Client struct {
	baseURL    string
	apiKey     string
	modelFast  string
	modelDeep  string
	tmpl       *template.Template
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient loads the prompt template from promptPath, falling back to the
// built-in template when the file is missing or unparseable.
func NewClient(baseURL, apiKey, modelFast, modelDeep, promptPath string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		modelFast:  modelFast,
		modelDeep:  modelDeep,
		tmpl:       loadPromptTemplate(promptPath, logger),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func loadPromptTemplate(path string, logger *zap.Logger) *template.Template {
	builtin := template.Must(template.New("prompt").Parse(builtinPrompt))
	if path == "" {
		return builtin
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("prompt template not readable, using built-in prompt",
			zap.String("path", path), zap.Error(err))
		return builtin
	}
	tmpl, err := template.New("prompt").Parse(string(raw))
	if err != nil {
		logger.Warn("prompt template invalid, using built-in prompt",
			zap.String("path", path), zap.Error(err))
		return builtin
	}
	return tmpl
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Generate renders the prompt for the bundle and asks the collaborator for
// an assessment. On any failure it returns FallbackMessage together with the
// error so callers can log the cause and still ship a complete response.
func (c *Client) Generate(ctx context.Context, bundle *domain.AnalysisBundle, choice ModelChoice) (string, error) {
	prompt, err := c.renderPrompt(bundle)
	if err != nil {
		return FallbackMessage, err
	}

	model := c.modelFast
	if choice == ModelDeep {
		model = c.modelDeep
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return FallbackMessage, fmt.Errorf("encoding generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return FallbackMessage, fmt.Errorf("building generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FallbackMessage, fmt.Errorf("calling narrative service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FallbackMessage, fmt.Errorf("narrative service returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return FallbackMessage, fmt.Errorf("decoding narrative response: %w", err)
	}
	if out.Error != "" {
		return FallbackMessage, fmt.Errorf("narrative service rejected request: %s", out.Error)
	}
	if strings.TrimSpace(out.Text) == "" {
		return FallbackMessage, fmt.Errorf("narrative service returned empty text")
	}

	c.logger.Debug("narrative generated",
		zap.String("model", model),
		zap.Int("chars", len(out.Text)))
	return out.Text, nil
}

func (c *Client) renderPrompt(bundle *domain.AnalysisBundle) (string, error) {
	bundleJSON, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding bundle for prompt: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		FinalScore float64
		BundleJSON string
	}{
		FinalScore: bundle.Score.FinalScore,
		BundleJSON: string(bundleJSON),
	}
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
