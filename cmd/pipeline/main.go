// Command pipeline runs the travel discovery pipeline end to end (or
// resumes a prior run) against a session definition supplied as JSON.
//
// Usage:
//
//	pipeline -session trip.json [flags]
//	pipeline -session trip.json -resume-run run_123 -from-stage 5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/checkpoint"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/config"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/cost"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/emit"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/workerpool"
	"github.com/wayfarerlabs/discovery-pipeline/providers"
	"github.com/wayfarerlabs/discovery-pipeline/providers/chat"
	"github.com/wayfarerlabs/discovery-pipeline/providers/llm"
	"github.com/wayfarerlabs/discovery-pipeline/providers/llm/anthropic"
	"github.com/wayfarerlabs/discovery-pipeline/providers/llm/google"
	"github.com/wayfarerlabs/discovery-pipeline/providers/llm/openai"
	"github.com/wayfarerlabs/discovery-pipeline/providers/mock"
	"github.com/wayfarerlabs/discovery-pipeline/providers/places"
	"github.com/wayfarerlabs/discovery-pipeline/providers/videosocial"
	"github.com/wayfarerlabs/discovery-pipeline/providers/webresearch"
	"github.com/wayfarerlabs/discovery-pipeline/stages"
)

// args holds the positional/flag split the way multi-llm-review's parseArgs
// does: a required session-file path plus everything the flag set knows
// how to parse.
type args struct {
	sessionPath     string
	runID           string
	resumeRunID     string
	fromStage       int
	stopAfterStage  int
	dryRun          bool
	continueOnError bool
	skipValidation  bool
	skipYoutube     bool
	jsonLogs        bool
}

func parseArgs(osArgs []string) (args, error) {
	var positional []string

	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	sessionPath := fs.String("session", "", "path to a session definition JSON file")
	runID := fs.String("run-id", "", "run identifier (defaults to a timestamp-derived id)")
	resumeRunID := fs.String("resume-run", "", "source run id to resume from (requires -from-stage)")
	fromStage := fs.Int("from-stage", 0, "first stage number to execute (0 = full run)")
	stopAfterStage := fs.Int("stop-after-stage", -1, "last stage number to execute (-1 = run through stage 10)")
	dryRun := fs.Bool("dry-run", false, "plan the run without writing checkpoints")
	continueOnError := fs.Bool("continue-on-error", false, "degrade instead of aborting when a stage fails")
	skipValidation := fs.Bool("skip-validation", false, "skip stage 7 fact-checking")
	skipYoutube := fs.Bool("skip-youtube", false, "omit YouTube worker assignments from the router plan")
	jsonLogs := fs.Bool("json-logs", false, "emit structured-log events as JSON instead of plain text")
	rest := osArgs
	for {
		if err := fs.Parse(rest); err != nil {
			return args{}, err
		}
		if rest = fs.Args(); len(rest) == 0 {
			break
		}
		positional, rest = append(positional, rest[0]), rest[1:]
	}

	path := *sessionPath
	if path == "" && len(positional) > 0 {
		path = positional[0]
	}
	if path == "" {
		return args{}, fmt.Errorf("a session definition file is required (-session or positional path)")
	}

	return args{
		sessionPath:     path,
		runID:           *runID,
		resumeRunID:     *resumeRunID,
		fromStage:       *fromStage,
		stopAfterStage:  *stopAfterStage,
		dryRun:          *dryRun,
		continueOnError: *continueOnError,
		skipValidation:  *skipValidation,
		skipYoutube:     *skipYoutube,
		jsonLogs:        *jsonLogs,
	}, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pipeline:", err)
		os.Exit(1)
	}
}

func run(osArgs []string) error {
	a, err := parseArgs(osArgs)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	session, err := loadSession(a.sessionPath)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	store := checkpoint.New(cfg.StoreRootDir)
	if _, err := checkpoint.WriteCheckpointRaw(store.SessionDir(session.SessionID)+"/session.json", session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	runID := a.runID
	if runID == "" {
		runID = fmt.Sprintf("run_%d", time.Now().UnixNano())
	}

	emitter := emit.NewLogEmitter(os.Stdout, a.jsonLogs)
	tracker := cost.New(runID)

	deps := buildDeps(cfg, tracker)

	rc := &pipeline.RunContext{
		Context:   context.Background(),
		SessionID: session.SessionID,
		RunID:     runID,
		Store:     store,
		Emitter:   emitter,
		Now:       time.Now,
	}

	optFns := []pipeline.Option{
		pipeline.WithDryRun(a.dryRun),
		pipeline.WithStopAfterStage(a.stopAfterStage),
		pipeline.WithContinueOnError(a.continueOnError),
		pipeline.WithFlags(pipeline.Flags{
			SkipValidation: a.skipValidation,
			SkipYoutube:    a.skipYoutube,
		}),
	}
	if a.fromStage > 0 {
		optFns = append(optFns, pipeline.WithResume(a.fromStage, a.resumeRunID))
	}
	opts := pipeline.NewRunOptions(optFns...)
	rc.Options = opts

	result, err := pipeline.Execute(rc, stages.BuildStages(session, deps), opts)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	fmt.Printf("run %s complete: %d stage(s) recorded, %d degraded\n",
		runID, len(result.Manifest.Stages), len(result.DegradedStages))
	fmt.Printf("results: %s\n", store.ResultsMarkdownPath(session.SessionID, runID))
	return nil
}

func loadSession(path string) (domain.Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Session{}, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, err
	}
	if s.SessionID == "" {
		return domain.Session{}, fmt.Errorf("session definition missing sessionId")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return s, nil
}

// buildDeps wires real provider clients when their API keys are present in
// cfg, falling back to deterministic mocks for anything unconfigured so the
// pipeline still runs end to end in a demo or offline setting.
func buildDeps(cfg config.Config, tracker *cost.Tracker) stages.Deps {
	chatModel := buildChatModel(cfg)

	var webSearcher providers.Searcher
	var placesSearcher providers.Searcher
	var videoSearcher providers.Searcher
	var chatBackend providers.ChatModel

	if chatModel != nil {
		webSearcher = webresearch.New(chatModel)
		chatBackend = chat.New(chatModel, resolveModelName(cfg), tracker)
	} else {
		webSearcher = &mock.Searcher{}
	}

	if cfg.PlacesAPIKey != "" {
		placesSearcher = places.New(cfg.PlacesAPIKey)
	} else {
		placesSearcher = &mock.Searcher{}
	}

	if cfg.YouTubeAPIKey != "" {
		if yt, err := videosocial.New(context.Background(), cfg.YouTubeAPIKey); err == nil {
			videoSearcher = yt
		}
	}
	if videoSearcher == nil {
		videoSearcher = &mock.Searcher{}
	}
	if chatBackend == nil {
		chatBackend = &mock.ChatModel{ModelName: "mock-chat"}
	}

	pool := workerpool.NewPool(cfg.MaxConcurrentWorkers, "cli")

	return stages.Deps{
		Pool:            pool,
		WebResearch:     webSearcher,
		Places:          placesSearcher,
		VideoSocial:     videoSearcher,
		Chat:            chatBackend,
		RouterConfig:    stages.DefaultRouterConfig(),
		ValidateConfig:  stages.DefaultValidateConfig(),
		SelectConfig:    stages.DefaultSelectConfig(),
		AggregateConfig: stages.DefaultAggregateConfig(),
	}
}

func buildChatModel(cfg config.Config) llm.ChatModel {
	switch cfg.ChatBackend {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil
		}
		return anthropic.New(cfg.AnthropicAPIKey, resolveModelName(cfg))
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		return openai.New(cfg.OpenAIAPIKey, resolveModelName(cfg))
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil
		}
		return google.New(cfg.GeminiAPIKey, resolveModelName(cfg))
	default:
		return nil
	}
}

func resolveModelName(cfg config.Config) string {
	if cfg.ChatModel != "" {
		return cfg.ChatModel
	}
	switch cfg.ChatBackend {
	case "anthropic":
		return "claude-3-5-sonnet-20241022"
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "mock-chat"
	}
}
