package main

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/taskflow/task-service/docs"
	"github.com/taskflow/task-service/internal/app"
	"github.com/taskflow/task-service/pkg/logger"
)

// @title           Task Service API
// @version         1.0
// @description     Personal task management: per-user tasks with filtering, sorting and statistics.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.

func main() {
	a, err := app.NewApp()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize app")
	}

	a.Router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if err := a.Run(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to run app")
	}
}
