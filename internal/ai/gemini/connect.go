package gemini

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
)

// ModelChooser picks one of the models the credential may use.
type ModelChooser func(models []string) (string, error)

// Connection is a Generator bound to a model the credential is allowed to use.
type Connection struct {
	Generator *Generator
	Evaluator *Evaluator
	Models    []string
}

// Connect validates the credential by listing models and binds the chosen one.
// A nil chooser takes cfg.Model, or the first model when cfg.Model is empty.
func Connect(ctx context.Context, cfg Config, choose ModelChooser, log *zap.Logger) (*Connection, error) {
	g, err := NewGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return connect(ctx, g, cfg.Model, choose, log)
}

func connect(ctx context.Context, g *Generator, requested string, choose ModelChooser, log *zap.Logger) (*Connection, error) {
	models, err := g.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if choose == nil {
		choose = func(models []string) (string, error) {
			return ai.SelectModel(models, requested)
		}
	}

	model, err := choose(models)
	if err != nil {
		return nil, err
	}

	bound := g.WithModel(model)
	bound.logger.Debug("model selected", zap.String(logger.FieldModel, bound.model), zap.Int("available", len(models)))

	return &Connection{
		Generator: bound,
		Evaluator: NewEvaluator(bound, log),
		Models:    models,
	}, nil
}
