package cli

import (
	"github.com/rcliao/mazlo-memory/internal/config"
	"github.com/rcliao/mazlo-memory/internal/embedding"
	"github.com/rcliao/mazlo-memory/internal/intake"
	"github.com/rcliao/mazlo-memory/internal/llm"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/memory"
	"github.com/rcliao/mazlo-memory/internal/planner"
	"github.com/rcliao/mazlo-memory/internal/retriever"
	"github.com/rcliao/mazlo-memory/internal/store"
	"github.com/rcliao/mazlo-memory/internal/summarizer"
)

// app holds the wired components for commands that go beyond plain store
// access. The model-backed parts are nil unless requested.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	store    *store.SQLiteStore
	llm      llm.Completer
	embedder embedding.Embedder

	retriever  *retriever.Retriever
	summarizer *summarizer.Summarizer
	pipeline   *intake.Pipeline
	service    *memory.Service
}

// newApp opens the store and builds the memory service. withModel also
// creates the LLM client, which requires an API key.
func newApp(withModel bool) *app {
	s, cfg := openStore()
	log, err := logging.New(cfg.LogMode)
	if err != nil {
		exitErr("create logger", err)
	}
	a := &app{cfg: cfg, log: log, store: s}

	if a.embedder, err = embedding.New(cfg.EmbeddingClient()); err != nil {
		exitErr("create embedder", err)
	}
	a.retriever = retriever.New(s, a.embedder, cfg.QueryCacheTTL(), log)

	if withModel {
		if a.llm, err = llm.New(cfg.LLMClient()); err != nil {
			exitErr("create llm client", err)
		}
		a.summarizer = summarizer.New(s, a.llm, a.embedder, log)
		a.pipeline = intake.New(s, planner.New(a.llm, log), log,
			intake.WithEmbedder(a.embedder),
			intake.WithSummarizer(a.summarizer),
		)
	}
	a.service = memory.NewService(s, a.retriever, a.summarizer, a.pipeline, log)
	return a
}

func (a *app) close() {
	a.store.Close()
	a.log.Sync()
}
