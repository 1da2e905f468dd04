package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
	gormpersistence "room-designer/internal/infra/persistence/gorm"
	"room-designer/internal/infra/setup"
	"room-designer/internal/persist"
	"room-designer/internal/repository"
	"room-designer/internal/store"
)

func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "designctl",
		Usage:   "Room designer maintenance tool",
		Version: Version,
		Flags:   dbFlags(),
		Commands: []*cli.Command{
			catalogCmd(),
			templatesCmd(),
			migrateCmd(),
			exportCmd(),
			importCmd(),
		},
	}
	// return errors to the caller instead of exiting
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db-driver", Value: setup.DriverSQLite, EnvVars: []string{"DB_DRIVER"}, Usage: "mysql|postgres|sqlite"},
		&cli.StringFlag{Name: "db-user", EnvVars: []string{"DB_USER"}},
		&cli.StringFlag{Name: "db-password", EnvVars: []string{"DB_PASSWORD"}},
		&cli.StringFlag{Name: "db-host", EnvVars: []string{"DB_HOST"}},
		&cli.StringFlag{Name: "db-port", EnvVars: []string{"DB_PORT"}},
		&cli.StringFlag{Name: "db-name", EnvVars: []string{"DB_NAME"}},
		&cli.StringFlag{Name: "db-path", Value: "room-designer.db", EnvVars: []string{"DB_PATH"}, Usage: "sqlite database file"},
	}
}

func openDB(c *cli.Context) (*gorm.DB, error) {
	return setup.InitDB(setup.DBConfig{
		Driver:   c.String("db-driver"),
		User:     c.String("db-user"),
		Password: c.String("db-password"),
		Host:     c.String("db-host"),
		Port:     c.String("db-port"),
		Name:     c.String("db-name"),
		Path:     c.String("db-path"),
	})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func catalogCmd() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Print the furniture catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Only entries of this category"},
		},
		Action: func(c *cli.Context) error {
			cat := catalog.Default()
			return outputJSON(c.App.Writer, map[string]interface{}{
				"categories": cat.Categories(),
				"items":      cat.List(c.String("category")),
			})
		},
	}
}

func templatesCmd() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "Print the built-in room templates",
		Action: func(c *cli.Context) error {
			return outputJSON(c.App.Writer, catalog.DefaultTemplates())
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(c *cli.Context) error {
			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer closeDB(db)
			if err := setup.MigrateDB(db); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "migrated")
			return nil
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a user's archived design state as JSON",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User id"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
		},
		Action: func(c *cli.Context) error {
			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer closeDB(db)

			userID := c.Uint("user")
			rec, err := gormpersistence.NewGormStateArchiveRepository(db).FindByUser(context.Background(), userID)
			if errors.Is(err, repository.ErrStateNotFound) {
				return fmt.Errorf("no archived state for user %d", userID)
			}
			if err != nil {
				return err
			}

			out := c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			_, err = out.Write(append([]byte(rec.Data), '\n'))
			return err
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Archive a design state JSON file for a user",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User id"},
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Input file (default stdin)"},
		},
		Action: func(c *cli.Context) error {
			var (
				data []byte
				err  error
			)
			if path := c.String("in"); path != "" {
				data, err = os.ReadFile(path)
			} else {
				data, err = io.ReadAll(c.App.Reader)
			}
			if err != nil {
				return err
			}

			// normalize through the same merge the server applies on load
			st, _, err := persist.Decode(data, store.DefaultState())
			if err != nil {
				return err
			}
			blob, err := persist.Encode(st)
			if err != nil {
				return err
			}

			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer closeDB(db)

			userID := c.Uint("user")
			rec := &domain.StateRecord{UserID: userID, Slot: persist.StorageKey, Version: persist.Version, Data: blob}
			if err := gormpersistence.NewGormStateArchiveRepository(db).Upsert(context.Background(), rec); err != nil {
				return err
			}
			return outputJSON(c.App.Writer, map[string]interface{}{
				"user_id":   userID,
				"furniture": len(st.Furniture),
				"designs":   len(st.Designs),
			})
		},
	}
}
