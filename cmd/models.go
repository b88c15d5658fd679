package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/ai/gemini"
	"github.com/spigell/mock-interviewer/internal/logger"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available for the configured api key",
	Run: func(cmd *cobra.Command, _ []string) {
		listModels(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func listModels(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	cfg, err := resolveGemini(config)
	if err != nil {
		logger.Fatal("loading gemini api key", zap.Error(err), zap.String("hint", apiKeyHint))
	}

	generator, err := gemini.NewGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("creating gemini client", zap.Error(err))
	}

	models, err := printModels(ctx, generator)
	if err != nil {
		logger.Fatal("listing models", zap.Error(err), zap.String("kind", ai.KindOf(err).String()))
	}

	logger.Debug("models listed", zap.Int("count", models))
}

func printModels(ctx context.Context, lister ai.ModelLister) (int, error) {
	models, err := lister.ListModels(ctx)
	if err != nil {
		return 0, err
	}

	for _, model := range models {
		fmt.Println(model)
	}

	return len(models), nil
}
