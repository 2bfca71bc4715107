package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Epistemic-Technology/citation-mcp/internal/documents"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

var (
	ErrMissingAPIKey = errors.New("openai api key is not configured")
	ErrEmptyCitation = errors.New("model returned an empty citation")
)

const (
	tokensPerPDFPage = 2000
	outputTokens     = 1000
)

var stringField = map[string]any{"type": "string"}

var metadataSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":            stringField,
		"authors":          map[string]any{"type": "array", "items": stringField},
		"item_type":        stringField,
		"publication_date": stringField,
		"publication":      stringField,
		"publisher":        stringField,
		"volume":           stringField,
		"issue":            stringField,
		"pages":            stringField,
		"doi":              stringField,
		"isbn":             stringField,
		"url":              stringField,
	},
	"required":             []string{"title", "authors", "item_type", "publication_date", "publication", "publisher", "volume", "issue", "pages", "doi", "isbn", "url"},
	"additionalProperties": false,
}

// citationSchema is the structured output the model must return.
var citationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"citation": map[string]any{
			"type":        "string",
			"description": "The formatted citation, or the full user text with in-text citations inserted.",
		},
		"analysis": map[string]any{
			"type":        "string",
			"description": "Short markdown notes on what was identified and anything uncertain.",
		},
		"footnotes": map[string]any{
			"type":  "array",
			"items": stringField,
		},
		"metadata": metadataSchema,
	},
	"required":             []string{"citation", "analysis", "footnotes", "metadata"},
	"additionalProperties": false,
}

// CitationRequest is one source and the context needed to cite it.
type CitationRequest struct {
	FileName string
	Content  documents.Content
	Style    styles.Style
	// Hints is metadata already known for the source, e.g. from Zotero.
	Hints *models.ItemMetadata
	// Masterpiece is the user's own text. When set the model inserts
	// in-text citations for the source into it.
	Masterpiece string
}

// CitationGenerator produces a citation for a single source.
type CitationGenerator interface {
	Generate(ctx context.Context, req CitationRequest) (*models.CitationResult, error)
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIGenerator cites sources with a vision model through the Responses
// API.
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	limiter *Limiter
	log     logger.Logger
}

func NewOpenAIGenerator(cfg OpenAIConfig, limiter *Limiter, log logger.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(shared.ChatModelGPT5Mini)
	}
	return &OpenAIGenerator{
		client:  openai.NewClient(opts...),
		model:   model,
		limiter: limiter,
		log:     log,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req CitationRequest) (*models.CitationResult, error) {
	var content responses.ResponseInputMessageContentListParam
	if len(req.Content.PDF) > 0 {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputFile: &responses.ResponseInputFileParam{
				FileData: openai.String("data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.Content.PDF)),
				Filename: openai.String(pdfName(req.FileName)),
			},
		})
	}
	content = append(content, responses.ResponseInputContentParamOfInputText(buildPrompt(req)))

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(g.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, "user"),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema("citation", citationSchema),
		},
	}

	g.log.Debug("Requesting %s citation for %s (pdf: %d bytes, text: %d chars)", req.Style, req.FileName, len(req.Content.PDF), len(req.Content.Text))
	response, err := RateLimitedCall(ctx, g.limiter, estimateTokens(req), g.log, func(ctx context.Context) (*responses.Response, error) {
		return g.client.Responses.New(ctx, params)
	})
	if err != nil {
		return nil, fmt.Errorf("citation request for %s failed: %w", req.FileName, err)
	}
	return parseCitation(response.OutputText(), req.FileName)
}

func pdfName(fileName string) string {
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return fileName
	}
	return "source.pdf"
}

func estimateTokens(req CitationRequest) int {
	n := outputTokens
	if len(req.Content.PDF) > 0 {
		n += tokensPerPDFPage
	}
	n += utf8.RuneCountInString(req.Content.Text) / 4
	n += utf8.RuneCountInString(req.Masterpiece) / 4
	return n
}

// parseCitation decodes the model's JSON answer. Footnotes may come back as
// a list or, from older prompts, as one string.
func parseCitation(output, fileName string) (*models.CitationResult, error) {
	output = strings.TrimSpace(output)
	output = strings.TrimPrefix(output, "```json")
	output = strings.TrimSuffix(strings.TrimPrefix(output, "```"), "```")

	var answer struct {
		Citation  string               `json:"citation"`
		Analysis  string               `json:"analysis"`
		Footnotes models.Footnotes     `json:"footnotes"`
		Metadata  *models.ItemMetadata `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &answer); err != nil {
		return nil, fmt.Errorf("invalid model output for %s: %w", fileName, err)
	}
	if strings.TrimSpace(answer.Citation) == "" {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEmptyCitation)
	}
	if answer.Metadata.IsEmpty() {
		answer.Metadata = nil
	}
	return &models.CitationResult{
		FileName:  fileName,
		Citation:  strings.TrimSpace(answer.Citation),
		Analysis:  strings.TrimSpace(answer.Analysis),
		Footnotes: answer.Footnotes,
		Metadata:  answer.Metadata,
	}, nil
}
