package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/tutorgrade/internal/api/http"
	"github.com/mind-engage/tutorgrade/internal/auth"
	authmw "github.com/mind-engage/tutorgrade/internal/auth/middleware"
	"github.com/mind-engage/tutorgrade/internal/config"
	"github.com/mind-engage/tutorgrade/internal/gradebook"
	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/logger"
	"github.com/mind-engage/tutorgrade/internal/metrics"
	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/session"
	"github.com/mind-engage/tutorgrade/internal/storage"
	"github.com/mind-engage/tutorgrade/internal/tutor"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	repo, err := problem.Open(openCtx, cfg.OpenOptions())
	cancel()
	if err != nil {
		return err
	}
	defer repo.Close()

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return err
	}

	// --- Users ---
	users := auth.DevDirectory()
	if cfg.UsersFile != "" {
		if users, err = auth.LoadDirectory(cfg.UsersFile); err != nil {
			return err
		}
	} else if cfg.Mode == config.ModeOnline {
		return errors.New("USERS_FILE is required in online mode")
	} else {
		lg.Warn("no USERS_FILE set, using the built-in teacher/student accounts")
	}

	m := metrics.New()
	ctl := tutor.New(tutor.Deps{
		Problems:    repo,
		Submissions: repo,
		Sessions:    session.NewMemoryStore(cfg.SessionTTL, nil),
		Users:       users,
		Grader:      grading.NewEngine(grading.WithFullKeywordMatchCorrect(cfg.GradingFullMatchCorrect)),
		Metrics:     m,
		Log:         lg,
	})

	// --- Results mirror (SQL event log -> sheet) ---
	if cfg.MirrorToSheet {
		sqlStore, ok := repo.(*problem.SQLStore)
		if !ok {
			return errors.New("mirror requires the sql backend")
		}
		creds, err := os.ReadFile(cfg.Sheets.CredentialsFile)
		if err != nil {
			return err
		}
		sheet, err := problem.NewSheetStore(ctx, cfg.SheetConfig(), creds)
		if err != nil {
			return err
		}
		go gradebook.New(sqlStore.Events(), sheet, lg.Named("mirror")).Run(ctx, cfg.MirrorInterval)
	}

	r := api.NewRouter(api.Deps{
		Controller:  ctl,
		Auth:        authmw.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Blobs:       bs,
		Metrics:     m,
		Log:         lg,
		CORSOrigins: cfg.CORSOrigins(),
		Ready: func(ctx context.Context) error {
			_, err := repo.ListProblems(ctx, problem.Filter{})
			return err
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("storage", cfg.StorageBackend),
			zap.Int("users", users.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
