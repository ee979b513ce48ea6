package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/config"
	"github.com/reyschwartz19/OpTracker/internal/db"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/scheduler"
	"github.com/reyschwartz19/OpTracker/internal/service"
	"github.com/reyschwartz19/OpTracker/internal/storage"
)

type App struct {
	Cfg                *config.Config
	DB                 *sqlx.DB
	AuthService        *service.AuthService
	UserService        *service.UserService
	ProfileService     *service.ProfileService
	EmailService       *service.EmailService
	OpportunityService *service.OpportunityService
	DocumentService    *service.DocumentService
	DashboardService   *service.DashboardService
	Scheduler          *scheduler.Scheduler
}

// New connects and migrates the datastore, then wires repositories,
// services and the reminder scheduler.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	opportunityRepository := repository.NewOpportunityRepository(database)
	timelineRepository := repository.NewTimelineRepository(database)
	reminderRepository := repository.NewReminderRepository(database)
	documentRepository := repository.NewDocumentRepository(database)

	// Storage
	fileStorage, err := storage.New(ctx, cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		profileRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenPasswordResetExpiry,
	)
	reminderScheduler := scheduler.New(opportunityRepository, reminderRepository, emailService, scheduler.Options{
		MaxAttempts: cfg.ReminderMaxAttempts,
		RunHour:     cfg.ReminderRunHour,
	})
	userService := service.NewUserService(userRepository)
	profileService := service.NewProfileService(profileRepository)
	opportunityService := service.NewOpportunityService(
		opportunityRepository,
		timelineRepository,
		reminderRepository,
		documentRepository,
		fileStorage,
		reminderScheduler,
	)
	documentService := service.NewDocumentService(documentRepository, opportunityRepository, fileStorage)
	dashboardService := service.NewDashboardService(opportunityRepository)

	return &App{
		Cfg:                cfg,
		DB:                 database,
		AuthService:        authService,
		UserService:        userService,
		ProfileService:     profileService,
		EmailService:       emailService,
		OpportunityService: opportunityService,
		DocumentService:    documentService,
		DashboardService:   dashboardService,
		Scheduler:          reminderScheduler,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
