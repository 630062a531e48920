package votingservice

import (
	"log/slog"
	"time"

	httpadapter "voteboard/contexts/elections/voting-service/adapters/http"
	"voteboard/contexts/elections/voting-service/adapters/memory"
	"voteboard/contexts/elections/voting-service/application/commands"
	"voteboard/contexts/elections/voting-service/application/queries"
	"voteboard/contexts/elections/voting-service/domain/entities"
	"voteboard/contexts/elections/voting-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Candidates ports.CandidateRepository
	Ballots    ports.BallotUnitOfWork
	Cache      ports.ResultsCache
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ballotUseCase := commands.BallotUseCase{
		Ballots: deps.Ballots,
		Cache:   deps.Cache,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	candidateUseCase := commands.CandidateUseCase{
		Candidates: deps.Candidates,
		Cache:      deps.Cache,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	voterUseCase := queries.VoterUseCase{
		Candidates: deps.Candidates,
	}
	resultsUseCase := queries.ResultsUseCase{
		Candidates: deps.Candidates,
		Cache:      deps.Cache,
		CacheTTL:   deps.CacheTTL,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Ballots:    ballotUseCase,
			Candidates: candidateUseCase,
			Voters:     voterUseCase,
			Results:    resultsUseCase,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to a single memory.Store. Results are
// cached for cacheTTL; zero disables caching.
func NewInMemoryModule(seed []entities.Candidate, cacheTTL time.Duration, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	var cache ports.ResultsCache
	if cacheTTL > 0 {
		cache = store
	}
	module := NewModule(Dependencies{
		Candidates: store,
		Ballots:    store,
		Cache:      cache,
		Clock:      store,
		IDGen:      store,
		CacheTTL:   cacheTTL,
		Logger:     logger,
	})
	module.Store = store
	return module
}
