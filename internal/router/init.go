package router

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/config"
	"github.com/oksasatya/go-notes-api/internal/application"
	"github.com/oksasatya/go-notes-api/internal/container"
	"github.com/oksasatya/go-notes-api/internal/domain/repository"
	pginfra "github.com/oksasatya/go-notes-api/internal/infrastructure/postgres"
	"github.com/oksasatya/go-notes-api/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-notes-api/internal/interface/http"
	"github.com/oksasatya/go-notes-api/internal/interface/middleware"
	"github.com/oksasatya/go-notes-api/internal/router/modules"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
)

// Deps are the collaborators the HTTP modules need. Optional fields may stay nil.
type Deps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Tokens   *helpers.JWTManager
	Users    repository.UserRepository
	Notes    repository.NoteRepository
	Searcher repository.NoteSearcher
	Indexer  repository.NoteIndexer   // optional
	Exporter application.Exporter     // optional
	Jobs     application.JobPublisher // optional
	Redis    *redis.Client            // optional: logout denylist and rate limits
}

// Build constructs services, handlers and modules from d and adds them to r.
func Build(r *Registry, d Deps) {
	cfg := d.Config

	accounts := application.NewAccountService(d.Users, helpers.NewBcryptHasher(helpers.PasswordCost), d.Tokens, d.Logger)
	var revoked middleware.RevocationChecker
	if d.Redis != nil {
		denylist := helpers.NewRedisDenylist(d.Redis)
		accounts.WithRevoker(denylist)
		revoked = denylist
	}
	if d.Jobs != nil {
		accounts.WithNotifications(d.Jobs, cfg.AppName)
	}

	notes := application.NewNoteService(d.Notes, d.Searcher, application.SearchPolicy{EmptyAsNotFound: cfg.SearchEmptyAsNotFound}, d.Logger)
	if d.Indexer != nil {
		notes.WithIndexer(d.Indexer)
	}
	if d.Exporter != nil {
		notes.WithExporter(d.Exporter)
	}

	var cookies *helpers.Manager
	if cfg.CookieEnabled {
		cookies = helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)
	}

	limits := d.Redis
	if !cfg.RateLimitEnabled {
		limits = nil
	}

	auth := middleware.Auth(d.Tokens, accounts, revoked, d.Logger)
	accountHandler := handlers.NewAccountHandler(accounts, d.Logger, cookies, cfg.IsProduction())
	noteHandler := handlers.NewNoteHandler(notes, d.Logger, cfg.IsProduction())

	r.Add(modules.NewHealthModule(auth))
	r.Add(modules.NewAccountModule(accountHandler, auth, limits))
	r.Add(modules.NewNoteModule(noteHandler, auth, limits))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limits))
	}
}

// InitModules wires every module from the container singletons. Call once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	noteRepo := pginfra.NewNoteRepository(pool)
	d := Deps{
		Config:   cfg,
		Logger:   logger,
		Tokens:   container.GetJWT(),
		Users:    pginfra.NewUserRepository(pool),
		Notes:    noteRepo,
		Searcher: noteRepo,
		Redis:    container.GetRedis(),
	}

	if es := container.GetES(); es != nil && cfg.SearchBackend == config.SearchBackendElasticsearch {
		idx := search.NewNoteIndex(es, cfg.ESNotesIndex, noteRepo)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := idx.EnsureIndex(ctx); err != nil {
			logger.WithError(err).WithField("index", cfg.ESNotesIndex).Warn("elasticsearch index not ready")
		}
		cancel()
		d.Searcher = idx
		d.Indexer = idx
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		d.Exporter = helpers.NewGCSUploader(gcs, cfg.GCSBucket)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		d.Jobs = pub
	}

	Build(r, d)
}
