package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	domain "github.com/example/task-store/domain/task"
	activitymod "github.com/example/task-store/modules/activity"
	apimod "github.com/example/task-store/modules/api"
	"github.com/example/task-store/modules/recordstore"
	taskmod "github.com/example/task-store/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	httpPort := getEnvInt("HTTP_PORT", 3000)
	backend := getEnv("STORE_BACKEND", recordstore.BackendJSON)
	dbPath := getEnv("DB_PATH", "db.json")
	sqlitePath := getEnv("SQLITE_PATH", "tasks.db")
	dbDebug := getEnvBool("DB_DEBUG", false)
	importPath := getEnv("IMPORT_PATH", "uploads/tasks.csv")
	csvMirror := getEnvBool("CSV_MIRROR", false)
	tzOffset := getEnvInt("TASKS_TZ_OFFSET", int(domain.DefaultOffset/time.Hour))
	activityLimit := getEnvInt("ACTIVITY_LIMIT", activitymod.DefaultLimit)
	allowedOrigins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	logLevel := getEnv("LOG_LEVEL", "info")

	log.Println("=== Task Store ===")
	log.Printf("HTTP Port: %d", httpPort)
	log.Printf("Store Backend: %s", backend)
	if backend == recordstore.BackendSQLite {
		log.Printf("Database: %s", sqlitePath)
	} else {
		log.Printf("Snapshot: %s", dbPath)
	}
	log.Printf("Import File: %s (mirror on every write: %t)", importPath, csvMirror)
	log.Printf("Timezone Offset: %+dh", tzOffset)

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(parseLogLevel(logLevel)),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	clock := domain.NewClock(time.Duration(tzOffset) * time.Hour)

	storeConfig := recordstore.Config{
		Backend:      backend,
		SnapshotPath: dbPath,
		SQLitePath:   sqlitePath,
		Debug:        dbDebug,
		Clock:        clock,
	}
	if csvMirror {
		storeConfig.MirrorTable = domain.Table
		storeConfig.Mirror = taskmod.NewCSVMirror(importPath)
	}

	// Create modules
	logger := app.Logger()
	storeModule := recordstore.NewModule(storeConfig, logger.WithModule("recordstore"))
	activityModule := activitymod.NewModule(activityLimit, logger.WithModule("activity"))
	taskModule := taskmod.NewModule(taskmod.Config{
		ImportPath: importPath,
		Clock:      clock,
	}, logger.WithModule("task"))
	apiModule := apimod.NewModule(apimod.Config{
		Port:           httpPort,
		AllowedOrigins: allowedOrigins,
	}, logger.WithModule("api"))

	// Wire up dependencies
	taskModule.SetStoreModule(storeModule)
	apiModule.SetTaskModule(taskModule)
	apiModule.SetActivityModule(activityModule)

	// Register modules
	// Order: the store first, then the event consumer, the domain module and the HTTP adapter
	app.Register(storeModule)
	app.Register(activityModule)
	app.Register(taskModule)
	app.Register(apiModule)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	printStartupInfo(httpPort)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port int) {
	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%d", port)
	log.Println("Endpoints:")
	log.Println("  GET    /health               - Health check")
	log.Println("  POST   /tasks                - Create task")
	log.Println("  GET    /tasks?search=        - List/search tasks")
	log.Println("  GET    /tasks/:id            - Get task")
	log.Println("  PUT    /tasks/:id            - Update task")
	log.Println("  DELETE /tasks/:id            - Delete task")
	log.Println("  PATCH  /tasks/:id/complete   - Toggle completion")
	log.Println("  POST   /tasks/import         - Import tasks from CSV")
	log.Println("  GET    /tasks/export         - Export tasks as CSV")
	log.Println("  GET    /activity             - Recent task activity")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

// parseLogLevel maps a LOG_LEVEL name to a mono log level. Unknown names
// fall back to info.
func parseLogLevel(name string) mono.LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return mono.LogLevelDebug
	case "warn", "warning":
		return mono.LogLevelWarn
	case "error":
		return mono.LogLevelError
	default:
		return mono.LogLevelInfo
	}
}
