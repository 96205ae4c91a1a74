package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"relcore/internal/apply"
	"relcore/internal/ast"
	"relcore/internal/db"
	"relcore/internal/engine"
	"relcore/internal/output"
	"relcore/internal/value"
)

func tablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd, func(ctx context.Context, d *db.Database) error {
				tables, err := d.ListTables(ctx)
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), a.formatter, tables)
			})
		},
	}
}

func describeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns, indexes and foreign keys of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd, func(ctx context.Context, d *db.Database) error {
				info, err := d.GetTableInfo(ctx, args[0])
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), a.formatter, info)
			})
		},
	}
}

func queryCmd(a *app) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a raw query and print the rows",
		Long: `Run a raw query and print the rows.

Parameters bind in order to the statement's placeholders. Each --param is
read as NULL, a boolean, an integer, a real, or else as text.

Examples:
  relcore query --db app.db "SELECT * FROM users WHERE age > ?" -p 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd, func(ctx context.Context, d *db.Database) error {
				rows, err := d.QueryRawParams(ctx, args[0], parseParams(params))
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), a.formatter, rows)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Query parameter, repeatable")
	return cmd
}

func execCmd(a *app) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Run a raw statement and print the number of affected rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd, func(ctx context.Context, d *db.Database) error {
				n, err := d.ExecRawParams(ctx, args[0], parseParams(params))
				if err != nil {
					return err
				}
				if a.machineReadable() {
					return output.Write(cmd.OutOrStdout(), a.formatter, db.Row{
						Columns: []string{"rows_affected"},
						Values:  []value.Value{value.Int64(n)},
					})
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d rows affected\n", n)
				return err
			})
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Statement parameter, repeatable")
	return cmd
}

func applyCmd(a *app) *cobra.Command {
	var opts apply.Options
	cmd := &cobra.Command{
		Use:   "apply <migration.toml>",
		Short: "Apply a migration document",
		Long: `Applies a TOML migration document to the database.

This command performs preflight checks before execution:
- Warns about potentially blocking DDL operations
- Refuses destructive operations (DROP TABLE, DROP COLUMN) without --unsafe
- Checks transaction safety of the migration

Examples:
  relcore apply --db app.db migrations/001_init.toml
  relcore apply --db app.db migrations/002_cleanup.toml --dry-run
  relcore apply --db app.db migrations/002_cleanup.toml --unsafe`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.FilePath = args[0]
			opts.Logger = a.logger
			opts.Out = cmd.OutOrStdout()
			if a.machineReadable() {
				opts.Out = cmd.ErrOrStderr()
			}
			applier := apply.NewApplier(opts)

			doc, err := applier.Load()
			if err != nil {
				return err
			}
			if len(doc.Statements) == 0 {
				a.printInfo(cmd, "No steps found in %s", opts.FilePath)
				return nil
			}
			a.printInfo(cmd, "Found %d step(s) in %s", len(doc.Statements), opts.FilePath)

			preflight := applier.PreflightChecks(doc.Statements, opts.Unsafe)
			return a.withDB(cmd, func(ctx context.Context, d *db.Database) error {
				applier.Use(d)
				plan, err := applier.Apply(ctx, doc.Statements, preflight)
				if err != nil {
					return err
				}
				if a.machineReadable() {
					return output.Write(cmd.OutOrStdout(), a.formatter, plan)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "d", false, "Run preflight checks and print the plan without persisting anything")
	cmd.Flags().BoolVarP(&opts.Transaction, "transaction", "t", false, "Run the migration inside an explicit transaction")
	cmd.Flags().BoolVar(&opts.AllowNonTransactional, "allow-non-transactional", false, "Allow steps that are not transaction-safe when --transaction is set")
	cmd.Flags().BoolVarP(&opts.Unsafe, "unsafe", "u", false, "Allow destructive operations (DROP TABLE, DROP COLUMN)")
	return cmd
}

func dropCmd(a *app) *cobra.Command {
	var (
		cascade  bool
		restrict bool
		ifExists bool
	)
	cmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table",
		Long: `Drop a table.

Without a flag the engine drops the table and fails only when existing rows
would violate a foreign key. --cascade also drops every table that
references it, transitively. --restrict refuses while any table references it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt := &ast.DropTableStatement{Table: args[0], IfExists: ifExists}
			switch {
			case cascade:
				stmt.Behavior = ast.DropCascade
			case restrict:
				stmt.Behavior = ast.DropRestrict
			}
			return a.withDB(cmd, func(ctx context.Context, d *db.Database) error {
				plan, err := d.DropTable(ctx, stmt)
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), a.formatter, plan)
			})
		},
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "Also drop every table that references this one")
	cmd.Flags().BoolVar(&restrict, "restrict", false, "Refuse to drop a table that is referenced")
	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "Do nothing when the table does not exist")
	cmd.MarkFlagsMutuallyExclusive("cascade", "restrict")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine driver in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "relcore (driver %s, %s)\n", engine.DriverName(), engine.DriverType())
			return err
		},
	}
}

// parseParams reads each parameter as the narrowest value it spells.
func parseParams(raw []string) []value.Value {
	out := make([]value.Value, 0, len(raw))
	for _, p := range raw {
		out = append(out, parseParam(p))
	}
	return out
}

func parseParam(p string) value.Value {
	if strings.EqualFold(p, "null") {
		return value.Null()
	}
	if b, err := strconv.ParseBool(p); err == nil && !isNumeric(p) {
		return value.Bool(b)
	}
	if n, err := strconv.ParseInt(p, 10, 64); err == nil {
		return value.Int64(n)
	}
	if f, err := strconv.ParseFloat(p, 64); err == nil {
		return value.Real64(f)
	}
	return value.String(p)
}

func isNumeric(p string) bool {
	_, err := strconv.ParseFloat(p, 64)
	return err == nil
}
