package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("No .env file found")
	}
	logger.Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		logger.Fatal().Msg("DB_URL environment variable is required")
	}

	migrationsPath, err := findMigrations()
	if err != nil {
		logger.Fatal().Err(err).Msg("Migrations directory not found")
	}

	m, err := migrate.New("file://"+migrationsPath, dbUrl)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open migrations")
	}
	defer m.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			logger.Fatal().Err(verr).Msg("Failed to read migration version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version")
		return
	case "force":
		if len(os.Args) < 3 {
			logger.Fatal().Msg("usage: migrate force <version>")
		}
		version, perr := strconv.Atoi(os.Args[2])
		if perr != nil {
			logger.Fatal().Err(perr).Msg("Invalid version")
		}
		err = m.Force(version)
	default:
		logger.Fatal().Str("command", cmd).Msg("Unknown command, expected up, down, version or force")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Str("command", cmd).Msg("Migration failed")
	}
	logger.Info().Str("command", cmd).Msg("Migration successful")
}

// findMigrations looks for a migrations directory near the working
// directory or the executable.
func findMigrations() (string, error) {
	candidates := []string{}

	if cwd, err := os.Getwd(); err == nil {
		current := cwd
		for i := 0; i < 6; i++ {
			candidates = append(candidates, filepath.Join(current, "migrations"))
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			current = parent
		}
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append(candidates,
			filepath.Join(exeDir, "migrations"),
			filepath.Join(exeDir, "..", "migrations"),
		)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", errors.New("no migrations directory")
}
