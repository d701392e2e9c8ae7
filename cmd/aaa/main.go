package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/client"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/config"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/notification"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/policy"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/role"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/user"
)

type Config struct {
	DbConfig    config.DatabaseConfig
	AppConfig   app.AppConfig
	JwtConfig   config.JwtConfig
	EmailConfig config.EmailConfig
}

func main() {

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.DbConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	repo := policy.NewPostgresDelegationRepository(pool)
	authority := role.NewPostgresAuthority(pool)
	directory := user.NewPostgresDirectory(pool)
	grants := policy.NewPostgresGrantSource(pool)

	var notifier notification.Notifier
	if cfg.EmailConfig.Host != "" {
		var smtpConfig notification.SMTPConfig
		copier.Copy(&smtpConfig, &cfg.EmailConfig)
		notifier, err = notification.NewEmailNotifier(smtpConfig)
		if err != nil {
			slog.Error("Failed creating email notifier", "err", err)
			os.Exit(-1)
		}
	} else {
		slog.Info("No SMTP host configured, using mock notifier")
		notifier = notification.NewMockNotifier()
	}

	delegationService := policy.NewDelegationService(repo, authority, directory,
		policy.WithNotifier(notifier))
	resolver := policy.NewResolver(repo, authority)
	verifier := policy.NewVerifier(resolver, authority, grants)

	handle := policy.NewHandle(delegationService, verifier)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JwtConfig.JwtSecret), nil)

	server.R.Group(func(r chi.Router) {
		r.Use(client.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(client.AuthUserMiddleware)
		handle.RegisterRoutes(r)
	})

	server.Run()

}
