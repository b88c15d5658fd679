package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/ai/gemini"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/resume"
)

const (
	PromptRetry = "Retry"
	PromptReset = "Start a new interview"
	PromptQuit  = "Quit"

	commandAudio = "/audio"
	commandEnd   = "/end"
	commandReset = "/reset"
	commandQuit  = "/quit"

	reportFailedMessage = "Failed to generate report. Please try again."
	localSessionID      = "local"
)

var errExit = errors.New("exit requested")

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a mock interview in the terminal",
	Long: `Run a mock interview in the terminal.

Type your answers and press ENTER. Commands:
  /audio <file>  answer with a recorded clip
  /end           finish the interview and get the report
  /reset         discard everything and start over
  /quit          leave without a report`,
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("role", "r", "", "target role (default is Software Engineer)")
	interviewCmd.Flags().String("level", "", "experience level: junior, mid or senior")
	interviewCmd.Flags().String("resume", "", "path to a PDF resume used as interview context")

	viper.BindPFlag("interview.role", interviewCmd.Flags().Lookup("role"))
	viper.BindPFlag("interview.level", interviewCmd.Flags().Lookup("level"))
	viper.BindPFlag("interview.resume", interviewCmd.Flags().Lookup("resume"))
}

func runInterview(ctx context.Context) {
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

	if config.Interview == nil {
		logger.Fatal("interview configuration is required")
	}

	cfg, err := resolveGemini(config)
	if err != nil {
		logger.Fatal("loading gemini api key", zap.Error(err), zap.String("hint", apiKeyHint))
	}

	var choose gemini.ModelChooser
	if strings.TrimSpace(cfg.Model) == "" {
		choose = chooseModel
	}

	conn, err := gemini.Connect(ctx, cfg, choose, logger)
	if errors.Is(err, errExit) {
		return
	}
	if err != nil {
		logger.Fatal("connecting to gemini", zap.Error(err), zap.String("kind", ai.KindOf(err).String()))
	}

	logger.Info("starting the interview", zap.String("version", version), zap.String("model", conn.Generator.Model()))

	controller, err := interview.NewController(interview.Deps{
		Chat:        conn.Generator,
		Transcriber: conn.Generator,
		Evaluator:   conn.Evaluator,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("creating the interview controller", zap.Error(err))
	}

	profile, err := askProfile(config.Interview)
	if errors.Is(err, errExit) {
		return
	}
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	profile.Resume = loadResume(config.Interview.Resume, logger)

	session := interview.NewSession(localSessionID)

	for {
		err := runSession(ctx, controller, session, profile, logger)
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "quit requested"))
			return
		}
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// runSession drives one interview from start to report. A nil error means the
// candidate asked for a new interview.
func runSession(ctx context.Context, controller *interview.Controller, session *interview.Session, profile interview.Profile, logger *zap.Logger) error {
	if err := controller.Start(ctx, session, profile); err != nil {
		return err
	}
	printTurns(session.Messages())

	answerPrompt := promptui.Prompt{Label: "You"}

	for session.Phase() == interview.PhaseChat {
		line, err := answerPrompt.Run()
		if err != nil {
			return exitOnInterrupt(err)
		}

		command, arg := parseCommand(line)
		switch command {
		case commandQuit:
			return errExit
		case commandReset:
			controller.Reset(session)
			return nil
		case commandEnd:
			if err := controller.End(session); err != nil {
				fmt.Println(err)
			}
			continue
		}

		in := interview.Input{Text: line}
		if command == commandAudio {
			audio, mimeType, err := readAudio(arg)
			if err != nil {
				logger.Warn("reading audio clip", zap.Error(err))
				continue
			}
			in = interview.Input{Audio: audio, AudioMIME: mimeType}
		}

		result, err := controller.Submit(ctx, session, in)
		if err != nil {
			if ai.IsFatal(err) {
				return err
			}
			logger.Warn("the interviewer did not answer, try again", zap.Error(err))
			continue
		}

		switch result.Skipped {
		case interview.SkipNone:
			if command == commandAudio {
				printTurns([]interview.Turn{*result.Answer})
			}
			printTurns([]interview.Turn{*result.Reply})
		case interview.SkipDuplicateAudio:
			fmt.Println("This clip was already submitted.")
		}
	}

	return reportLoop(ctx, controller, session)
}

func reportLoop(ctx context.Context, controller *interview.Controller, session *interview.Session) error {
	for {
		evaluation, err := controller.Report(ctx, session)
		if err == nil {
			printEvaluation(evaluation)
			return afterReport(controller, session)
		}

		fmt.Println(reportFailedMessage)

		retry := promptui.Select{
			Label: "Report",
			Items: []string{PromptRetry, PromptReset, PromptQuit},
		}

		_, action, err := retry.Run()
		if err != nil {
			return exitOnInterrupt(err)
		}

		switch action {
		case PromptReset:
			controller.Reset(session)
			return nil
		case PromptQuit:
			return errExit
		}
	}
}

func afterReport(controller *interview.Controller, session *interview.Session) error {
	next := promptui.Select{
		Label: "What next?",
		Items: []string{PromptReset, PromptQuit},
	}

	_, action, err := next.Run()
	if err != nil {
		return exitOnInterrupt(err)
	}

	if action == PromptQuit {
		return errExit
	}

	controller.Reset(session)
	return nil
}

func chooseModel(models []string) (string, error) {
	if len(models) == 1 {
		return models[0], nil
	}

	modelPrompt := promptui.Select{
		Label: "Choose a model and press ENTER",
		Items: models,
		Size:  10,
	}

	_, model, err := modelPrompt.Run()
	if err != nil {
		return "", exitOnInterrupt(err)
	}

	return model, nil
}

func askProfile(cfg *InterviewConfig) (interview.Profile, error) {
	rolePrompt := promptui.Prompt{
		Label:     "Target role",
		Default:   cfg.Role,
		AllowEdit: true,
	}

	role, err := rolePrompt.Run()
	if err != nil {
		return interview.Profile{}, exitOnInterrupt(err)
	}

	configured, err := interview.ParseLevel(cfg.Level)
	if err != nil {
		return interview.Profile{}, err
	}

	levelPrompt := promptui.Select{
		Label:     "Experience level",
		Items:     interview.Levels,
		CursorPos: max(slices.Index(interview.Levels, configured), 0),
	}

	idx, _, err := levelPrompt.Run()
	if err != nil {
		return interview.Profile{}, exitOnInterrupt(err)
	}

	return interview.Profile{Role: role, Level: interview.Levels[idx]}, nil
}

// loadResume returns the resume text, or an empty string when the file cannot
// be used. The interview goes on without it.
func loadResume(path string, logger *zap.Logger) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	text, err := resume.ExtractFile(path)
	if err != nil {
		logger.Warn("could not read the resume, continuing without it", zap.String("path", path), zap.Error(err))
		return ""
	}

	logger.Info("resume loaded", zap.String("path", path), zap.Int("characters", len([]rune(text))))
	return text
}

func parseCommand(line string) (string, string) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return "", ""
	}

	command, arg, _ := strings.Cut(trimmed, " ")
	command = strings.ToLower(command)

	switch command {
	case commandAudio, commandEnd, commandReset, commandQuit:
		return command, strings.TrimSpace(arg)
	default:
		return "", ""
	}
}

func readAudio(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("usage: %s <file>", commandAudio)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}

	return data, audioMIMEType(path), nil
}

// audioMIMEType guesses the clip type from its extension. An empty result lets
// the provider client fall back to its default.
func audioMIMEType(path string) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		return ""
	}

	mimeType, _, _ = strings.Cut(mimeType, ";")
	if !strings.HasPrefix(mimeType, "audio/") {
		return ""
	}

	return mimeType
}

func printTurns(turns []interview.Turn) {
	for _, turn := range turns {
		label := "Interviewer"
		if turn.Role == interview.RoleUser {
			label = "You"
		}
		fmt.Printf("\n%s: %s\n\n", label, turn.Content)
	}
}

func printEvaluation(e *ai.Evaluation) {
	fmt.Printf("\nScore: %d/%d\n", e.Score, ai.MaxScore)
	fmt.Printf("Decision: %s\n", e.Decision)
	if e.Tone != "" {
		fmt.Printf("Tone: %s\n", e.Tone)
	}
	printList("Strengths", e.Strengths)
	printList("Weaknesses", e.Weaknesses)
	if e.Summary != "" {
		fmt.Printf("\n%s\n\n", e.Summary)
	}
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func exitOnInterrupt(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errExit
	}
	return err
}
