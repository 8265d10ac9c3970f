package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "github.com/nits830/pdf-mechanic/internal/auth"
	"github.com/nits830/pdf-mechanic/internal/extract"
	"github.com/nits830/pdf-mechanic/internal/llm"
	openai "github.com/nits830/pdf-mechanic/internal/llm/openai"
	"github.com/nits830/pdf-mechanic/internal/pdfs"
	"github.com/nits830/pdf-mechanic/internal/services/health"
	"github.com/nits830/pdf-mechanic/internal/shared/config"
	"github.com/nits830/pdf-mechanic/internal/shared/server"
	"github.com/nits830/pdf-mechanic/internal/shared/storage/db"
	"github.com/nits830/pdf-mechanic/internal/shared/storage/object"
	localstore "github.com/nits830/pdf-mechanic/internal/shared/storage/object/local"
	s3store "github.com/nits830/pdf-mechanic/internal/shared/storage/object/s3"
	"github.com/nits830/pdf-mechanic/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	UsersRepo  users.Repo
	PDFRepo    pdfs.Repo
	Extractor  extract.Extractor
	Summarizer llm.Summarizer
	UsersSvc   *users.Service
	PDFSvc     *pdfs.Service
	UsersHdlr  *users.Handler
	PDFHdlr    *pdfs.Handler
	GoogleAuth *googleauth.GoogleService
	HealthSvc  *health.Service
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      app.Config,
		Health:      app.HealthSvc,
		PDFHandler:  app.PDFHdlr,
		UserHandler: app.UsersHdlr,
		GoogleAuth:  app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "development":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var userRepo users.Repo
	var pdfRepo pdfs.Repo
	dbMode := "memory"

	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		pdfRepo = &pdfs.PGRepo{DB: app.DB}
		dbMode = "postgres"
	} else {
		userRepo = users.NewMemoryRepo()
		pdfRepo = pdfs.NewMemoryRepo()
	}

	summarizer := llm.Summarizer(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" && os.Getenv("OPENAI_API_KEY") != "" {
		client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		summarizer = client
	}

	userSvc := users.NewService(userRepo)

	pdfSvc := pdfs.NewService(pdfRepo, app.Store, extract.NewPDFExtractor(), summarizer)
	pdfSvc.MaxUploadBytes = app.Config.MaxUploadBytes
	pdfSvc.ExtractionTimeout = app.Config.ExtractionTimeout

	app.UsersRepo = userRepo
	app.PDFRepo = pdfRepo
	app.Extractor = pdfSvc.Extractor
	app.Summarizer = summarizer
	app.UsersSvc = userSvc
	app.PDFSvc = pdfSvc
	app.UsersHdlr = users.NewHandler(userSvc)
	app.PDFHdlr = pdfs.NewHandler(pdfSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)
	app.HealthSvc = health.NewService(app.Config.ObjectStoreType, dbMode)

	return nil
}
