package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const hfMaxNewTokens = 120

// HuggingFaceClient calls the hosted inference API for a text-generation model.
type HuggingFaceClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewHuggingFaceClient(baseURL, apiKey, model string, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type hfParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (c *HuggingFaceClient) Name() string { return "huggingface" }

// Generate returns the first generated text. Responses that are not a
// generation array (model loading notices and the like) yield "".
func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := postJSON(ctx, c.client, c.baseURL+"/models/"+c.model, c.apiKey, hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: hfMaxNewTokens,
			Temperature:  temperature,
		},
	})
	if err != nil {
		return "", err
	}

	var gens []hfGeneration
	if err := json.Unmarshal(body, &gens); err != nil || len(gens) == 0 {
		return "", nil
	}
	return strings.TrimSpace(gens[0].GeneratedText), nil
}
