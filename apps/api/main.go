package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	echoapi "github.com/Kobu-Labs/nowaster-web-sub002/apps/api/echo"
	"github.com/Kobu-Labs/nowaster-web-sub002/assets"
	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
	emailsvc "github.com/Kobu-Labs/nowaster-web-sub002/services/email"
	eventsvc "github.com/Kobu-Labs/nowaster-web-sub002/services/events"
	logsvc "github.com/Kobu-Labs/nowaster-web-sub002/services/logger"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/realtime"
	"github.com/Kobu-Labs/nowaster-web-sub002/storage/database"
	inmemdb "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/inmem"
	boiledrepos "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/sqlboiler"
	sqlxrepos "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/sqlx"
)

// engineMemory keeps everything in process memory; handy for demos, gone on restart.
const engineMemory = "memory"

// repositories is the storage backend every service runs on.
type repositories struct {
	pinger core.Pinger
	tx     core.TxManager
	close  func() error

	user         user.Repository
	category     category.Repository
	tag          tag.Repository
	session      session.Repository
	project      project.Repository
	statistics   statistics.Repository
	friend       friend.Repository
	feed         feed.Repository
	notification notification.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewZerolog(os.Stdout, "api", conf), conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(logsvc.NewZerolog(os.Stdout, "db", conf), conf)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpRepositories(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		sgSvc := emailsvc.NewSendgridService(conf, logger)
		defer sgSvc.Wait() // flush pending mails
		mailSvc = sgSvc
	}

	bus := eventsvc.NewBus(logger)
	defer func() {
		if err = bus.Close(); err != nil {
			logger.Error("closing event bus", err)
		}
	}()
	hub := realtime.NewHub(conf.Server.AllowedOrigins, logger)
	defer hub.Close()

	usrSvc := user.NewService(repos.user, mailSvc, conf)
	feedSvc := feed.NewService(repos.feed, repos.user, repos.friend, bus, logger)
	notifSvc := notification.NewService(repos.notification, hub, logger)
	if err = bus.Wire(feedSvc.Handlers(), notifSvc.Handlers()); err != nil {
		logger.Fatal(fmt.Sprintf("wiring event handlers: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, false, logger)
	user.LoadCommonPasswords(assets.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("db").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Pinger:          repos.pinger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			CategorySvc:     category.NewService(repos.category),
			TagSvc:          tag.NewService(repos.tag, repos.category),
			SessionSvc:      session.NewService(repos.session, repos.category, repos.tag, repos.project, repos.tx, bus, logger),
			ProjectSvc:      project.NewService(repos.project, bus, logger),
			StatisticsSvc:   statistics.NewService(repos.statistics, repos.project),
			FriendSvc:       friend.NewService(repos.friend, repos.user, repos.tx, bus, mailSvc, logger),
			FeedSvc:         feedSvc,
			NotificationSvc: notifSvc,
			Live:            hub,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config, logger core.Logger) (*repositories, error) {
	if conf.Database.Engine == engineMemory {
		logger.Warn("using the in-memory store: data is lost on restart")
		db := inmemdb.Open()
		return &repositories{
			pinger:       db,
			tx:           inmemdb.NewTxManager(db),
			close:        func() error { return nil },
			user:         inmemdb.NewUserRepository(db),
			category:     inmemdb.NewCategoryRepository(db),
			tag:          inmemdb.NewTagRepository(db),
			session:      inmemdb.NewSessionRepository(db),
			project:      inmemdb.NewProjectRepository(db),
			statistics:   inmemdb.NewStatisticsRepository(db),
			friend:       inmemdb.NewFriendRepository(db),
			feed:         inmemdb.NewFeedRepository(db),
			notification: inmemdb.NewNotificationRepository(db),
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return nil, err
	}
	return &repositories{
		pinger:       db,
		tx:           database.NewTxManager(db),
		close:        db.Close,
		user:         sqlxrepos.NewUserRepository(db),
		category:     sqlxrepos.NewCategoryRepository(db),
		tag:          sqlxrepos.NewTagRepository(db),
		session:      sqlxrepos.NewSessionRepository(db),
		project:      sqlxrepos.NewProjectRepository(db),
		statistics:   boiledrepos.NewStatisticsRepository(db),
		friend:       sqlxrepos.NewFriendRepository(db),
		feed:         sqlxrepos.NewFeedRepository(db),
		notification: sqlxrepos.NewNotificationRepository(db),
	}, nil
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
