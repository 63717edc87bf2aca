package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"arena/internal/config"
	"arena/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-dir migrations] up | down [n] | version | force <version>")
	os.Exit(2)
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New("arena-migrate", cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("create migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, flag.Args()); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("migration failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatal("read version", zap.Error(err))
	}
	logger.Info("migrations done", zap.String("command", flag.Arg(0)), zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func run(m *migrate.Migrate, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		if len(args) < 2 {
			return m.Steps(-1)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("down takes a positive step count, got %q", args[1])
		}
		return m.Steps(-n)
	case "version":
		return nil
	case "force":
		if len(args) < 2 {
			usage()
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("force takes a version number, got %q", args[1])
		}
		return m.Force(v)
	}
	usage()
	return nil
}
