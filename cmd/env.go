package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/analyze"
	"github.com/sells-group/intel-cli/internal/cache"
	"github.com/sells-group/intel-cli/internal/enrich"
	"github.com/sells-group/intel-cli/internal/fetch"
	"github.com/sells-group/intel-cli/internal/llm"
	"github.com/sells-group/intel-cli/internal/pipeline"
	"github.com/sells-group/intel-cli/internal/search"
	"github.com/sells-group/intel-cli/internal/store"
	"github.com/sells-group/intel-cli/internal/synthesis"
	"github.com/sells-group/intel-cli/internal/tracker"
	anthropicpkg "github.com/sells-group/intel-cli/pkg/anthropic"
	"github.com/sells-group/intel-cli/pkg/jina"
	"github.com/sells-group/intel-cli/pkg/notion"
	openaipkg "github.com/sells-group/intel-cli/pkg/openai"
)

// pipelineEnv holds the initialized store, clients, and pipeline shared
// by the research/serve/requests commands.
type pipelineEnv struct {
	Store    store.Store
	Cache    *cache.Cache
	Tracker  *tracker.Tracker
	Pipeline *pipeline.Pipeline
	Worker   *pipeline.Worker
	Notion   notion.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "intel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv sets up the store, all API clients, and the pipeline.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	c := cache.New(st, cfg.Cache)
	trk := tracker.New(st, cfg.Tracker)

	jinaOpts := []jina.Option{}
	if cfg.Jina.BaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	searchClient := search.New(jinaClient, c, cfg.Search)
	fetcher := fetch.New(cfg.Fetch, jinaClient)

	analysisInvoker, synthesisInvoker := initInvokers()

	analyzer := analyze.NewAnalyzer(analysisInvoker, cfg.Pipeline.MaxSnippets)
	engine := synthesis.NewEngine(synthesisInvoker)

	var enricher pipeline.Enricher
	if cfg.Enrich.Endpoint != "" {
		lookup := enrich.NewHTTPLookup(cfg.Enrich.Endpoint, cfg.Enrich.Key,
			time.Duration(cfg.Enrich.TimeoutSecs)*time.Second)
		enricher = enrich.New(lookup)
	}

	p := pipeline.New(searchClient, fetcher, analyzer, engine, enricher, c, *cfg)
	w := pipeline.NewWorker(p, trk, 0)

	env := &pipelineEnv{
		Store:    st,
		Cache:    c,
		Tracker:  trk,
		Pipeline: p,
		Worker:   w,
	}
	if cfg.Notion.Token != "" {
		env.Notion = notion.NewClient(cfg.Notion.Token)
	}
	return env, nil
}

// initInvokers picks a model family per stage: the cheaper Anthropic
// model runs gap analysis, the stronger one synthesis. When only an
// OpenAI key is configured, both stages use it instead.
func initInvokers() (llm.Invoker, llm.Invoker) {
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return llm.NewAnthropicInvoker(client, cfg.Anthropic.HaikuModel, "gap-analysis"),
			llm.NewAnthropicInvoker(client, cfg.Anthropic.SonnetModel, "synthesis")
	}

	client := openaipkg.NewClient(cfg.OpenAI.Key)
	zap.L().Info("anthropic key not set, using openai for both stages")
	inv := llm.NewOpenAIInvoker(client, cfg.OpenAI.Model)
	return inv, inv
}
