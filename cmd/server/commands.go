package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pressroom/internal/config"
	"pressroom/internal/db"
	"pressroom/internal/handlers"
	"pressroom/internal/logging"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/router"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg config.Config
	lg  *slog.Logger

	promoteEmail string
	promoteRole  string

	rootCmd = &cobra.Command{
		Use:   "pressroom",
		Short: "Moderated social publishing backend",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			lg = logging.New(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(lg)
		},
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := openDB()
			if err == nil {
				lg.Info("migrations complete")
			}
			return err
		},
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute every stored counter once",
		RunE:  runReconcile,
	}

	promoteCmd = &cobra.Command{
		Use:   "promote",
		Short: "Set the role of a user by email",
		RunE:  runPromote,
	}
)

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user")
	promoteCmd.Flags().StringVar(&promoteRole, "role", string(models.RoleAdmin), "USER, MODERATOR or ADMIN")
	promoteCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd, promoteCmd)
}

func openDB() (*gorm.DB, error) {
	database, err := db.Open(cfg.DatabaseURL, lg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}

	cache, err := handlers.NewArticleCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return err
	}
	counters := services.NewCounters(database)
	reconciler := services.NewReconciler(counters, lg, cfg.ReconcileInterval)
	reconciler.OnCorrected(cache.Invalidate)
	limiter := middleware.PerMinute(cfg.SubmitRatePerMin)

	deps := router.Deps{
		Config:        cfg,
		DB:            database,
		Log:           lg,
		Lifecycle:     services.NewLifecycle(database, lg, services.LifecycleOptions{RetainOnDelete: cfg.RetainOnDelete()}),
		Likes:         services.NewLikes(database, lg),
		Comments:      services.NewComments(database, lg),
		Follows:       services.NewFollows(database, lg),
		Users:         services.NewUsers(database, lg),
		Notifications: services.NewNotifications(database),
		Counters:      counters,
		Reconciler:    reconciler,
		Cache:         cache,
		SubmitLimiter: limiter,
	}

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	router.RegisterRoutes(r, deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reconciler.Run(ctx)
	go pruneLimiter(ctx, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		lg.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	lg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	lg.Info("server stopped")
	return nil
}

func pruneLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.Prune(10 * time.Minute)
		}
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	start := time.Now()
	n, err := services.NewCounters(database).ReconcileAll(cmd.Context(), nil)
	if err != nil {
		return err
	}
	lg.Info("reconcile complete", "fixed", n, "took", time.Since(start))
	return nil
}

func runPromote(cmd *cobra.Command, args []string) error {
	role, ok := models.ParseRole(strings.ToUpper(promoteRole))
	if !ok {
		return fmt.Errorf("unknown role %q", promoteRole)
	}
	database, err := openDB()
	if err != nil {
		return err
	}
	users := services.NewUsers(database, lg)
	ctx := cmd.Context()
	u, err := users.GetByEmail(ctx, promoteEmail)
	if err != nil {
		return err
	}
	// The CLI acts with operator authority.
	u, err = users.SetRole(ctx, u.ID, role, models.Identity{Role: models.RoleAdmin})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s is now %s\n", u.Email, u.Role)
	return nil
}
