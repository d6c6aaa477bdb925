package schedule

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"assistente-api/internal/config"
	"assistente-api/internal/util"
)

const systemPrompt = "Você é um assistente que extrai cronogramas de estudo de " +
	"documentos PDF. Leia o documento e retorne o cronograma como uma lista JSON, " +
	"onde cada item tem o dia, a matéria, uma descrição curta e as habilidades " +
	"trabalhadas. Responda apenas com o JSON, sem texto adicional."

// Entry is one extracted study-schedule item.
type Entry struct {
	Day         string   `json:"day"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

// Extractor reads a study schedule out of a PDF document.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) ([]Entry, error)
}

// GeminiExtractor extracts schedules with the Gemini API, constrained to a
// JSON response schema so the output parses without post-processing.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(ctx context.Context, cfg *config.Config) (*GeminiExtractor, error) {
	geminiConfig := cfg.Gemini

	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("no Gemini API key configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  geminiConfig.Model,
	}, nil
}

func (e *GeminiExtractor) Extract(ctx context.Context, pdf []byte) ([]Entry, error) {
	contents := []*genai.Content{
		genai.NewContentFromBytes(pdf, "application/pdf", genai.RoleUser),
	}

	generateConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"day":         {Type: genai.TypeString},
					"subject":     {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"skills": {
						Type:  genai.TypeArray,
						Items: &genai.Schema{Type: genai.TypeString},
					},
				},
				Required: []string{"day", "subject", "description", "skills"},
			},
		},
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr[int32](8000),
		},
	}

	res, err := e.client.Models.GenerateContent(ctx, e.model, contents, generateConfig)
	if err != nil {
		util.Error("Schedule extraction failed", zap.Error(err))
		return nil, fmt.Errorf("failed to extract schedule: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(res.Text()), &entries); err != nil {
		util.Error("Schedule extraction returned invalid JSON", zap.Error(err))
		return nil, fmt.Errorf("failed to parse extracted schedule: %w", err)
	}

	return entries, nil
}
