package main

import (
	"flag"

	"go.uber.org/zap"

	"conduit/crud"
	"conduit/errs"
	"conduit/http"
)

// main is the app's entry point.
func main() {
	// Check if the flag "-prod" has been provided. It means that we're
	// running in production, where a config.yml file is required.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a config.yml file is provided before the application starts.")
	flag.Parse()

	config, err := LoadConfig(*productionBool)
	must(err)

	// Set up structured logging.
	var logger *zap.Logger
	if config.IsProd() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	must(err)
	defer logger.Sync()
	errs.SetLogger(logger)

	// Open a database connection and execute migrations.
	db := NewDB(config.Database.ConnectionInfo())
	must(Open(db, config.IsProd()))
	defer Close(db)
	must(AutoMigrate(db))

	// Start the crud services.
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithUser(config.Pepper),
		crud.WithArticle(),
		crud.WithFavorite(),
		crud.WithFollow(),
	)
	must(err)

	// Set up a webserver and serve the app.
	server := http.NewServer(
		logger,
		config.JWTSecret,
		services.User,
		services.Article,
		services.Favorite,
		services.Follow,
	)
	must(server.Run(config.Port))
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
