package main

import (
	"github.com/bryan-buckman/cinevore/internal/config"
	"github.com/bryan-buckman/cinevore/internal/database"
	"github.com/bryan-buckman/cinevore/internal/server"
	"github.com/bryan-buckman/cinevore/internal/tmdb"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	var db database.Store
	var err error
	if cfg.DatabaseURL != "" {
		db, err = database.NewPostgres(cfg.DatabaseURL)
	} else {
		db, err = database.New(cfg.DatabasePath)
	}
	if err != nil {
		logrus.WithError(err).Fatal("could not open database")
	}
	defer db.Close()
	logrus.WithField("backend", db.DatabaseType()).Info("database ready")

	client := tmdb.NewClient(cfg.TMDBToken)

	srv, err := server.New(cfg, db, client)
	if err != nil {
		logrus.WithError(err).Fatal("could not create server")
	}
	if err := srv.Start(cfg.Addr); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
