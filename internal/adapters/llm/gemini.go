package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a ModelClient backed by the Gemini API (API-key
// backend, not Vertex).
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelName: modelName}, nil
}

// Generate implements domain.ModelClient.
func (g *GeminiClient) Generate(ctx context.Context, req domain.ModelRequest) (*domain.ModelReply, error) {
	contents := toContents(req.History)

	temp := float32(0)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: 500,
		Temperature:     &temp,
		SafetySettings:  permissiveSafetySettings(),
		Tools:           toTools(req.Functions),
	}
	if req.Instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w: %w", domain.ErrUpstream, err)
	}

	// The loop only ever acts on the first function call; the model is
	// instructed to emit at most one per turn.
	if calls := res.FunctionCalls(); len(calls) > 0 {
		return &domain.ModelReply{
			Text:         res.Text(),
			FunctionCall: &domain.FunctionCall{Name: calls[0].Name, Args: calls[0].Args},
		}, nil
	}

	return &domain.ModelReply{Text: res.Text()}, nil
}

func toContents(history []domain.Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range history {
		content := &genai.Content{Role: string(m.Role)}
		for _, p := range m.Parts {
			switch {
			case p.FunctionCall != nil:
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args},
				})
			case p.FunctionResponse != nil:
				response := map[string]any{"output": p.FunctionResponse.Response.Output}
				if p.FunctionResponse.Response.Error != "" {
					response["error"] = p.FunctionResponse.Response.Error
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{Name: p.FunctionResponse.Name, Response: response},
				})
			default:
				content.Parts = append(content.Parts, &genai.Part{Text: p.Text})
			}
		}
		contents = append(contents, content)
	}
	return contents
}

func toTools(decls []domain.FunctionDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}

	// One declaration per tool.
	tools := make([]*genai.Tool, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  toSchema(d.Parameters),
			}},
		})
	}
	return tools
}

func toSchema(s *domain.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func permissiveSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}
