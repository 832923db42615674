package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/latex"
	"resume-pipeline/internal/llm"
	"resume-pipeline/internal/llm/gemini"
	"resume-pipeline/internal/llm/openai"
	"resume-pipeline/internal/profile"
	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/render"
	"resume-pipeline/internal/services/health"
	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/shared/server"
	"resume-pipeline/internal/shared/storage/db"
	"resume-pipeline/internal/shared/storage/object"
	localstore "resume-pipeline/internal/shared/storage/object/local"
	s3store "resume-pipeline/internal/shared/storage/object/s3"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/submissions"
	"resume-pipeline/internal/workerproc"
)

// App holds shared dependencies for the API, worker and Lambda entrypoints.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	// SQS and RabbitMQ are set when the matching driver is configured so the
	// worker can consume from the same queue intake publishes to.
	SQS      *queue.SQSClient
	RabbitMQ *queue.RabbitMQClient
	Inline   *queue.Inline

	LLM               llm.Completer
	SubmissionsRepo   submissions.Repo
	Reporter          *submissions.Reporter
	Pipeline          *submissions.Pipeline
	SubmissionService *submissions.Service
	SubmissionHandler *submissions.Handler
	Sweeper           *submissions.Sweeper
	Health            *health.Service
}

// Options overrides collaborators, mostly for tests.
type Options struct {
	LLM      llm.Completer
	Compiler submissions.Compiler
	Queue    queue.Client
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildWithOptions(context.Background(), cfg, Options{})
}

// BuildWithOptions is Build with overridable collaborators.
func BuildWithOptions(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLevel(cfg.LogLevel)

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	completer := opts.LLM
	if completer == nil {
		completer, err = buildLLM(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    completer,
	}
	app.buildPipeline(opts.Compiler)

	if opts.Queue != nil {
		app.Queue = opts.Queue
	} else if err := app.buildQueue(ctx); err != nil {
		return nil, err
	}

	app.SubmissionService = &submissions.Service{
		Repo:           app.SubmissionsRepo,
		Store:          app.Store,
		Queue:          app.Queue,
		Reporter:       app.Reporter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	app.SubmissionHandler = submissions.NewHandler(app.SubmissionService)
	app.Sweeper = &submissions.Sweeper{
		Repo:      app.SubmissionsRepo,
		Retention: cfg.Retention,
		Interval:  cfg.CleanupInterval,
	}

	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	app.Health = health.NewService(pinger, cfg.QueueDriver, cfg.ObjectStoreType)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		SubmissionHandler: app.SubmissionHandler,
		Health:            app.Health,
	})
	return app, nil
}

// Run lets App serve as the worker's runner.
func (a *App) Run(ctx context.Context, submissionID, runToken string) error {
	if a.Pipeline == nil {
		return errors.New("pipeline not configured")
	}
	return a.Pipeline.Run(ctx, submissionID, runToken)
}

// Close releases queue connections.
func (a *App) Close() error {
	if a.RabbitMQ != nil {
		return a.RabbitMQ.Close()
	}
	return nil
}

func (a *App) buildPipeline(compiler submissions.Compiler) {
	if a.DB != nil {
		a.SubmissionsRepo = &submissions.PGRepo{DB: a.DB}
	} else {
		a.SubmissionsRepo = submissions.NewMemoryRepo()
	}
	if compiler == nil {
		compiler = latex.New(latex.Options{
			BaseURL: a.Config.LatexBaseURL,
			Timeout: a.Config.LatexTimeout,
		})
	}
	a.Reporter = &submissions.Reporter{
		Repo:         a.SubmissionsRepo,
		PollInterval: a.Config.StatusPollInterval,
	}
	a.Pipeline = &submissions.Pipeline{
		Repo:        a.SubmissionsRepo,
		Text:        extract.Extractor{},
		Info:        &profile.Extractor{LLM: a.LLM, Timeout: a.Config.LLMTimeout},
		Renderer:    render.New(),
		Compiler:    compiler,
		PageCounter: latex.PageCount,
	}
}

func (a *App) buildQueue(ctx context.Context) error {
	switch a.Config.QueueDriver {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, a.Config.AWSRegion, a.Config.SQSQueueURL)
		if err != nil {
			return err
		}
		a.SQS = client
		a.Queue = client
	case "rabbitmq":
		client, err := queue.NewRabbitMQClient(a.Config.RabbitMQURL, a.Config.RabbitMQQueue)
		if err != nil {
			return err
		}
		a.RabbitMQ = client
		a.Queue = client
	default:
		a.Inline = queue.NewInline(func(ctx context.Context, msg queue.Message) error {
			return workerproc.Dispatch(ctx, a, msg)
		})
		a.Queue = a.Inline
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultWorkerOptions(cfg.WorkerConcurrency))
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildLLM picks the completion provider. Missing credentials are tolerated in
// dev so the API still boots; runs then fail at INFO_EXTRACTED with a clear reason.
func buildLLM(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	var (
		completer llm.Completer
		err       error
	)
	switch cfg.LLMProvider {
	case "openai":
		completer, err = openai.NewClient(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
	default:
		completer, err = gemini.NewClient(ctx, gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			UseADC:  cfg.GeminiUseADC,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: llm provider %s unavailable: %v", cfg.LLMProvider, err)
			return llm.Unconfigured{Provider: cfg.LLMProvider}, nil
		}
		return nil, err
	}
	return completer, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
