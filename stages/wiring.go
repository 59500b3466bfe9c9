package stages

import (
	"context"
	"fmt"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/checkpoint"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/workerpool"
	"github.com/wayfarerlabs/discovery-pipeline/providers"
)

// Deps bundles the external collaborators the numbered stages need:
// provider clients for stage 3, a chat backend for stages 7 and 9, and the
// worker pool's concurrency/circuit-breaking machinery.
type Deps struct {
	Pool            *workerpool.Pool
	WebResearch     providers.Searcher
	Places          providers.Searcher
	VideoSocial     providers.Searcher
	Chat            providers.ChatModel
	RouterConfig    RouterConfig
	ValidateConfig  ValidateConfig
	SelectConfig    SelectConfig
	AggregateConfig AggregateConfig
}

// BuildStages returns the eleven numbered stages in order, each wired
// against session and deps' provider/chat clients. The rank stage reads the
// intent-extraction tags from the run's stage-1 checkpoint when it executes.
func BuildStages(session domain.Session, deps Deps) []pipeline.Stage {
	return []pipeline.Stage{
		enhancementStage{},
		intakeStage{},
		routerStage{cfg: deps.RouterConfig},
		workerExecutionStage{deps: deps},
		normalizeStage{},
		dedupeStage{},
		rankStage{session: session},
		validateStage{deps: deps},
		selectStage{cfg: deps.SelectConfig},
		aggregateStage{deps: deps},
		renderStage{},
	}
}

type enhancementStage struct{}

func (enhancementStage) Number() int  { return 0 }
func (enhancementStage) Name() string { return "enhancement" }
func (enhancementStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	session, err := coerce[domain.Session](input)
	if err != nil {
		return nil, fmt.Errorf("enhancement: decode input: %w", err)
	}
	return Enhance(session), nil
}

type intakeStage struct{}

func (intakeStage) Number() int  { return 1 }
func (intakeStage) Name() string { return "intake" }
func (intakeStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	enh, err := coerce[EnhancementOutput](input)
	if err != nil {
		return nil, fmt.Errorf("intake: decode input: %w", err)
	}
	return Intake(enh), nil
}

type routerStage struct{ cfg RouterConfig }

func (routerStage) Number() int  { return 2 }
func (routerStage) Name() string { return "router_plan" }
func (s routerStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	intent, err := coerce[domain.EnrichedIntent](input)
	if err != nil {
		return nil, fmt.Errorf("router_plan: decode input: %w", err)
	}
	cfg := s.cfg
	cfg.SkipYoutube = rc.Options.Flags.SkipYoutube
	return Route(intent, cfg), nil
}

type workerExecutionStage struct{ deps Deps }

func (workerExecutionStage) Number() int  { return 3 }
func (workerExecutionStage) Name() string { return "worker_outputs" }
func (s workerExecutionStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	plan, err := coerce[domain.WorkerPlan](input)
	if err != nil {
		return nil, fmt.Errorf("worker_outputs: decode input: %w", err)
	}
	exec := s.routingExecutor()
	out, writeErrs := ExecuteWorkers(rc.Context, rc.Store, rc.SessionID, rc.RunID, plan, s.deps.Pool, exec)
	for _, e := range writeErrs {
		if rc.Emitter != nil {
			rc.Emitter.Emit(workerOutputWriteFailedEvent(rc.RunID, e))
		}
	}
	return out, nil
}

// routingExecutor dispatches each assignment to the provider its "provider"
// field names (web/places/youtube), so a single stage-3 pool can fan out
// across all three collaborator types.
func (s workerExecutionStage) routingExecutor() workerpool.Executor {
	webExec := providers.NewExecutor(s.deps.WebResearch, workerpool.DefaultRetryPolicy())
	placesExec := providers.NewExecutor(s.deps.Places, workerpool.LightRetryPolicy())
	videoExec := providers.NewExecutor(s.deps.VideoSocial, workerpool.LightRetryPolicy())

	return func(ctx context.Context, a domain.WorkerAssignment) (domain.WorkerOutput, error) {
		switch a.Provider {
		case "places":
			return placesExec(ctx, a)
		case "youtube":
			return videoExec(ctx, a)
		default:
			return webExec(ctx, a)
		}
	}
}

type normalizeStage struct{}

func (normalizeStage) Number() int  { return 4 }
func (normalizeStage) Name() string { return "candidates_normalized" }
func (normalizeStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	wo, err := coerce[WorkerExecutionOutput](input)
	if err != nil {
		return nil, fmt.Errorf("candidates_normalized: decode input: %w", err)
	}
	return Normalize(wo.Outputs), nil
}

type dedupeStage struct{}

func (dedupeStage) Number() int  { return 5 }
func (dedupeStage) Name() string { return "candidates_deduped" }
func (dedupeStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	norm, err := coerce[NormalizeOutput](input)
	if err != nil {
		return nil, fmt.Errorf("candidates_deduped: decode input: %w", err)
	}
	return Dedupe(norm.Candidates), nil
}

type rankStage struct{ session domain.Session }

func (rankStage) Number() int  { return 6 }
func (rankStage) Name() string { return "candidates_ranked" }
func (s rankStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	dedup, err := coerce[DedupeOutput](input)
	if err != nil {
		return nil, fmt.Errorf("candidates_ranked: decode input: %w", err)
	}
	destination := ""
	if len(s.session.Destinations) > 0 {
		destination = s.session.Destinations[0]
	}
	return Rank(RankInput{
		Clusters:     dedup.Clusters,
		Destination:  destination,
		Interests:    s.session.Interests,
		InferredTags: loadInferredTags(rc),
	}, rc.Now()), nil
}

// loadInferredTags recovers stage 1's intent-extraction vocabulary for stage
// 6's relevance scoring. It checks the current run first, then falls back to
// the resume source run, since a resumed run starting at stage 6 or later
// never re-executes stage 1 under its own run id.
func loadInferredTags(rc *pipeline.RunContext) []string {
	runIDs := []string{rc.RunID}
	if rc.Options.SourceRunID != "" {
		runIDs = append(runIDs, rc.Options.SourceRunID)
	}
	for _, runID := range runIDs {
		path := rc.Store.StagePath(rc.SessionID, runID, 1, "intake")
		intent, err := checkpoint.ReadCheckpointData[domain.EnrichedIntent](path)
		if err == nil {
			return intent.InferredTags
		}
	}
	return nil
}

type validateStage struct{ deps Deps }

func (validateStage) Number() int  { return 7 }
func (validateStage) Name() string { return "candidates_validated" }
func (s validateStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	ranked, err := coerce[RankOutput](input)
	if err != nil {
		return nil, fmt.Errorf("candidates_validated: decode input: %w", err)
	}
	if rc.Options.Flags.SkipValidation || s.deps.Chat == nil {
		return ValidateOutput{Clusters: ranked.Clusters}, nil
	}
	cfg := s.deps.ValidateConfig
	if cfg.TopK == 0 && cfg.Timeout == 0 {
		cfg = DefaultValidateConfig()
	}
	check := func(ctx context.Context, c domain.Candidate) (domain.Validation, error) {
		return s.deps.Chat.FactCheck(ctx, c)
	}
	return Validate(rc.Context, ranked.Clusters, cfg, check), nil
}

type selectStage struct{ cfg SelectConfig }

func (selectStage) Number() int  { return 8 }
func (selectStage) Name() string { return "top_candidates" }
func (s selectStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	validated, err := coerce[ValidateOutput](input)
	if err != nil {
		return nil, fmt.Errorf("top_candidates: decode input: %w", err)
	}
	cfg := s.cfg
	if cfg.TopN == 0 {
		cfg = DefaultSelectConfig()
	}
	if rc.Options.Limits.MaxTopCandidates > 0 {
		cfg.TopN = rc.Options.Limits.MaxTopCandidates
	}
	return Select(validated.Clusters, cfg), nil
}

type aggregateStage struct{ deps Deps }

func (aggregateStage) Number() int  { return 9 }
func (aggregateStage) Name() string { return "aggregator_output" }
func (s aggregateStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	selected, err := coerce[SelectOutput](input)
	if err != nil {
		return nil, fmt.Errorf("aggregator_output: decode input: %w", err)
	}
	cfg := s.deps.AggregateConfig
	if cfg.MaxAttempts == 0 {
		cfg = DefaultAggregateConfig()
	}
	if s.deps.Chat == nil {
		return domain.AggregateOutput{Clusters: selected.Clusters, Stats: domain.AggregateStats{NarrativeGenerated: false}}, nil
	}
	generate := func(ctx context.Context, clusters []domain.Cluster) (domain.Narrative, error) {
		return s.deps.Chat.Narrate(ctx, clusters)
	}
	return Aggregate(rc.Context, selected.Clusters, cfg, generate), nil
}

type renderStage struct{}

func (renderStage) Number() int  { return 10 }
func (renderStage) Name() string { return "results" }
func (renderStage) Execute(rc *pipeline.RunContext, input any) (any, error) {
	agg, err := coerce[domain.AggregateOutput](input)
	if err != nil {
		return nil, fmt.Errorf("results: decode input: %w", err)
	}
	out := Render(agg)
	if err := writeResultsMarkdown(rc, out.Markdown); err != nil {
		return nil, fmt.Errorf("results: write markdown: %w", err)
	}
	return out, nil
}
