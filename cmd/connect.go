package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai/gemini"
	"github.com/spigell/mock-interviewer/internal/secrets"
	"github.com/spigell/mock-interviewer/internal/server"
)

const apiKeyHint = "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or the 'ai.gemini.api-key' key in the configuration file"

// providerConfig validates the provider section. The api key is left to the caller.
func providerConfig(config *Config) (gemini.Config, error) {
	if config == nil || config.AI == nil || config.AI.Gemini == nil {
		return gemini.Config{}, errors.New("gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if provider != "" && provider != gemini.Provider {
		return gemini.Config{}, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	return gemini.Config{
		Model:        config.AI.Gemini.Model,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
	}, nil
}

// resolveGemini returns the provider config with the api key loaded. Without a
// key nothing else can run.
func resolveGemini(config *Config) (gemini.Config, error) {
	cfg, err := providerConfig(config)
	if err != nil {
		return cfg, err
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  config.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		return cfg, err
	}

	cfg.APIKey = apiKey
	return cfg, nil
}

// geminiConnector opens provider connections with the key each HTTP client submits.
type geminiConnector struct {
	base   gemini.Config
	logger *zap.Logger
}

func (c geminiConnector) Connect(ctx context.Context, req server.ConnectRequest) (*server.Backend, error) {
	cfg := c.base
	cfg.APIKey = req.APIKey
	if model := strings.TrimSpace(req.Model); model != "" {
		cfg.Model = model
	}

	conn, err := gemini.Connect(ctx, cfg, nil, c.logger)
	if err != nil {
		return nil, err
	}

	return &server.Backend{
		Model:       conn.Generator.Model(),
		Models:      conn.Models,
		Chat:        conn.Generator,
		Transcriber: conn.Generator,
		Evaluator:   conn.Evaluator,
	}, nil
}
