package gemini

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/utils"
)

const (
	Provider = "gemini"

	modelPrefix           = "models/"
	generateContentAction = "generateContent"
	defaultAudioMIMEType  = "audio/wav"
	jsonMIMEType          = "application/json"
	defaultMaxLogLength   = 200

	transcribeInstruction = "Transcribe this audio text exactly as spoken."
)

type modelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	All(ctx context.Context) iter.Seq2[*genai.Model, error]
}

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Config configures a Generator.
type Config struct {
	APIKey       string
	Model        string
	MaxLogLength int
}

// Generator wraps the Google GenAI client. One Generator serves one credential;
// WithModel derives a copy bound to another model.
type Generator struct {
	models    modelService
	chats     chatCreator
	model     string
	maxLogLen int
	logger    *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API backend. The model may be
// left empty until ListModels has been consulted.
func NewGenerator(ctx context.Context, cfg Config, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ai.Fatal("create genai client", errors.New("gemini api key is required"))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, ai.Fatal("create genai client", err)
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		models:    client.Models,
		chats:     genaiChats{chats: client.Chats},
		model:     normalizeModel(cfg.Model),
		maxLogLen: maxLogLen,
		logger:    logger.WithFields(log, logger.StringFields(logger.StringField{Key: logger.FieldProvider, Value: Provider})...),
	}, nil
}

// WithModel returns a copy of g bound to model.
func (g *Generator) WithModel(model string) *Generator {
	clone := *g
	clone.model = normalizeModel(model)
	return &clone
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// ListModels returns the models that support generateContent, in provider order.
func (g *Generator) ListModels(ctx context.Context) ([]string, error) {
	if g == nil || g.models == nil {
		return nil, ai.Fatal("list models", errors.New("gemini generator is not initialized"))
	}

	var names []string
	for model, err := range g.models.All(ctx) {
		if err != nil {
			return nil, classify("list models", err)
		}
		if model == nil || !slices.Contains(model.SupportedActions, generateContentAction) {
			continue
		}
		if name := normalizeModel(model.Name); name != "" {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, ai.Fatal("list models", errors.New("no models supporting content generation are available for this api key"))
	}

	g.logger.Debug("discovered models", zap.Strings("models", names))

	return names, nil
}

// StartChat opens a chat primed with systemInstruction. History lives inside
// the returned conversation.
func (g *Generator) StartChat(ctx context.Context, systemInstruction string) (ai.Conversation, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(strings.TrimSpace(systemInstruction), genai.RoleUser),
	}

	chat, err := g.chats.Create(ctx, g.model, cfg, nil)
	if err != nil {
		return nil, classify("start chat", err)
	}

	return &conversation{
		chat:      chat,
		maxLogLen: g.maxLogLen,
		logger:    logger.WithCommonFields(g.logger, "", g.model),
	}, nil
}

// Transcribe sends the audio clip with a fixed transcription instruction. It is
// a single attempt, callers decide what a failure means.
func (g *Generator) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	if len(audio) == 0 {
		return "", ai.InvalidResponse("transcribe", errors.New("audio payload must not be empty"))
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = defaultAudioMIMEType
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribeInstruction),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	g.logger.Debug("gemini transcription request",
		zap.String(logger.FieldModel, g.model),
		zap.Int("audio_bytes", len(audio)),
		zap.String("mime_type", mimeType),
	)

	return g.generateContent(ctx, "transcribe", contents, nil)
}

// GenerateJSON asks for a machine-parseable answer constrained by schema.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: jsonMIMEType,
		ResponseSchema:   schema,
	}

	g.logger.Debug("gemini generate json request",
		zap.String(logger.FieldModel, g.model),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(utils.OneLine(prompt), g.maxLogLen)),
	)

	return g.generateContent(ctx, "generate json", genai.Text(prompt), cfg)
}

func (g *Generator) ready() error {
	if g == nil || g.models == nil || g.chats == nil {
		return ai.Fatal("gemini", errors.New("gemini generator is not initialized"))
	}
	if g.model == "" {
		return ai.Fatal("gemini", errors.New("gemini model is not selected"))
	}
	return nil
}

func (g *Generator) generateContent(ctx context.Context, op string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", classify(op, err)
	}

	output := responseText(resp)
	if output == "" {
		return "", ai.InvalidResponse(op, errors.New("gemini api returned empty response"))
	}

	g.logger.Debug("gemini generate content response",
		zap.String("op", op),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(utils.OneLine(output), g.maxLogLen)),
	)

	return output, nil
}

type conversation struct {
	chat      chatSession
	maxLogLen int
	logger    *zap.Logger
}

func (c *conversation) Send(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	c.logger.Debug("gemini chat request",
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(utils.OneLine(message), c.maxLogLen)),
	)

	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", classify("send message", err)
	}

	reply := responseText(resp)
	if reply == "" {
		return "", ai.InvalidResponse("send message", errors.New("gemini api returned empty response"))
	}

	c.logger.Debug("gemini chat response",
		zap.Int("response_length", utf8.RuneCountInString(reply)),
		zap.String("response_preview", utils.TruncateForLog(utils.OneLine(reply), c.maxLogLen)),
	)

	return reply, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// Only the first usable candidate is the answer.
		if builder.Len() > 0 {
			break
		}
	}

	return strings.TrimSpace(builder.String())
}

// classify tags provider errors. Rejected credentials and unknown models need
// reconfiguration, everything else may succeed on a later attempt.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	code, message, ok := apiErrorDetails(err)
	if !ok {
		return ai.Transient(op, err)
	}

	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusNotFound:
		return ai.Fatal(op, err)
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key"):
		return ai.Fatal(op, err)
	default:
		return ai.Transient(op, err)
	}
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}

	return 0, "", false
}

func normalizeModel(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), modelPrefix)
}
