package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/clubware/memberauth"
	"github.com/clubware/memberauth/mailer"
	"github.com/clubware/memberauth/storage"
)

// AppConfig is loaded from the environment, with an optional .env overlay
// in development.
type AppConfig struct {
	Addr       string `env:"ADDR" envDefault:":8572"`
	DSN        string `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	Production bool   `env:"PRODUCTION" envDefault:"false"`
	BaseURL    string `env:"BASE_URL"`

	SigningKey      string `env:"JWT_SIGNING_KEY,required"`
	TokenExpiration int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`
	Issuer          string `env:"JWT_ISSUER" envDefault:"memberauth"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"noreply@clubware.dev"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
}

func loadConfig() (AppConfig, error) {
	// .env is a development convenience, a missing file is fine
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("memberauthd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	if err := run(lgr); err != nil {
		lgr.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(lgr *glog.BaseLogger) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	authCfg := memberauth.Config{
		SigningKey:      cfg.SigningKey,
		TokenExpiration: cfg.TokenExpiration,
		Issuer:          cfg.Issuer,
		Production:      cfg.Production,
	}.Defaults()

	bunDB, err := openDatabase(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	repo := memberauth.NewRepositoryManager(bunDB)
	if err := repo.Validate(); err != nil {
		return err
	}

	store := memberauth.NewUserStore(repo.Users())

	userProvider := memberauth.NewUserProvider(store).
		WithLogger(lgr.GetLogger("auth:prv"))

	authenticator := memberauth.NewAuthenticator(userProvider, authCfg).
		WithLogger(lgr.GetLogger("auth:authn"))

	httpAuth, err := memberauth.NewHTTPAuthenticator(authenticator, store, authCfg)
	if err != nil {
		return err
	}
	httpAuth.Logger = lgr.GetLogger("auth:http")

	var mail mailer.Mailer = mailer.Noop{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	var uploader storage.Uploader
	if cfg.S3Bucket != "" {
		uploader = storage.NewS3Client(storage.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})
	srv.Router().WithLogger(lgr.GetLogger("router"))

	activityLogger := lgr.GetLogger("auth:activity")
	sink := memberauth.ActivitySinkFunc(func(ctx context.Context, event memberauth.ActivityEvent) error {
		activityLogger.Info("auth activity",
			"event", string(event.EventType),
			"user_id", event.UserID,
			"email", event.Email,
		)
		return nil
	})

	authenticator.WithActivitySink(sink)

	memberauth.RegisterAuthRoutes(srv.Router(),
		memberauth.WithControllerRepo(repo),
		memberauth.WithControllerAuth(httpAuth, authenticator),
		memberauth.WithControllerSecrets(memberauth.NewResetSecretManager(authCfg.ResetTokenTTL)),
		memberauth.WithControllerMailer(mail),
		memberauth.WithControllerUploader(uploader),
		memberauth.WithControllerActivitySink(sink),
		memberauth.WithControllerLogger(lgr.GetLogger("auth:ctrl")),
		memberauth.WithControllerBaseURL(cfg.BaseURL),
	)

	registerAdminRoutes(srv.Router(), httpAuth, authenticator)

	lgr.Info("listening", "addr", cfg.Addr)
	srv.Serve(cfg.Addr)

	WaitExitSignal()

	return nil
}

// registerAdminRoutes mounts routes behind the role gate. Member management
// is for staff; role administration is for admins only.
func registerAdminRoutes(r router.Router[*fiber.App], httpAuth *memberauth.RouteAuthenticator, authenticator *memberauth.Auther) {
	protect := httpAuth.ProtectedRoute(
		memberauth.TokenValidatorFunc(authenticator.TokenService().Validate),
		httpAuth.MakeRouteAuthErrorHandler(false),
	)

	staffOnly := httpAuth.RequireRole(memberauth.RoleSecretary, memberauth.RoleAdmin, memberauth.RoleSuperAdmin)
	adminOnly := httpAuth.RequireRole(memberauth.RoleAdmin, memberauth.RoleSuperAdmin)

	r.Get("/api/v1/admin/members", protect(staffOnly(func(ctx router.Context) error {
		return ctx.Status(router.StatusOK).JSON(router.ViewContext{
			"status": "success",
			"data":   router.ViewContext{"members": []string{}},
		})
	})))

	r.Get("/api/v1/admin/roles", protect(adminOnly(func(ctx router.Context) error {
		return ctx.Status(router.StatusOK).JSON(router.ViewContext{
			"status": "success",
			"data":   router.ViewContext{"roles": memberauth.GetAllRoles()},
		})
	})))
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := bunDB.NewCreateTable().
		Model((*memberauth.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}

	return bunDB, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
