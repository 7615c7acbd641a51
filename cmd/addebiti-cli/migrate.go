package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"addebiti/internal/backend"
	"addebiti/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Apply pending SQLite schema migrations",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipBackend: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend.BackendType(a.cfg.DataBackend) != backend.SQLiteBackend {
				return errors.New("migrate only applies to the sqlite backend")
			}
			if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, err := storage.SchemaVersion(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]uint{"schema_version": version}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Schema at version %d (%s)\n", version, a.cfg.SQLiteDBPath)
				return err
			})
		},
	}
}
