package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/gradesheet/internal/exporter"
	appI18n "github.com/pavelanni/gradesheet/internal/i18n"
	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
	"github.com/pavelanni/gradesheet/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an assessment report to a file",
		Long: `Build a report for one assessment, read either from the database
(--assessment) or straight from a dataset file (--dataset).`,
		RunE: runExport,
	}
	f := cmd.Flags()
	f.String("db", "gradesheet.db", "SQLite database path")
	f.String("assessment", "", "Assessment ID in the database")
	f.String("dataset", "", "Dataset JSON file to export without importing it")
	f.StringP("config", "c", "", "Export configuration file (JSON or YAML)")
	f.StringP("format", "f", "", "Output format overriding the configuration (xlsx, csv)")
	f.StringP("mode", "m", string(model.ModeDefault), "Export mode (default, advanced)")
	f.String("filename", "", "Custom filename stem overriding the configuration")
	f.StringP("output", "o", "", "Output file or directory (- for stdout, empty for the report name)")
	f.StringP("lang", "l", "en", "Report language (en, ru)")
	f.String("timezone", "UTC", "Time zone for timestamps in reports")
	f.Bool("insights", false, "Add an LLM insights sheet")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	cmd.MarkFlagsMutuallyExclusive("assessment", "dataset")
	cmd.MarkFlagsOneRequired("assessment", "dataset")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import dataset JSON files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			db, err := store.New(v.GetString("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			return importFiles(db, args)
		},
	}
	cmd.Flags().String("db", "gradesheet.db", "SQLite database path")
	addLogFlags(cmd)
	return cmd
}

func importFiles(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := db.ImportDataset(path, data); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}
	return nil
}

func readExportConfig(path string) (model.ExportConfiguration, error) {
	cfg := model.DefaultExportConfiguration()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %w", report.ErrConfiguration, path, err)
	}
	return cfg, nil
}

func readDatasetFile(path string) (model.Dataset, error) {
	var ds model.Dataset
	data, err := os.ReadFile(path)
	if err != nil {
		return ds, fmt.Errorf("read dataset: %w", err)
	}
	if err := store.ValidateDataset(data); err != nil {
		return ds, fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(data, &ds); err != nil {
		return ds, fmt.Errorf("%w: parse %s: %w", store.ErrInvalidDataset, path, err)
	}
	return ds, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg, err := readExportConfig(v.GetString("config"))
	if err != nil {
		return err
	}
	if f := v.GetString("format"); f != "" {
		cfg.Settings.Format = model.Format(strings.ToLower(f))
	}
	if name := v.GetString("filename"); name != "" {
		cfg.Settings.CustomFilename = name
	}

	var in report.Input
	if path := v.GetString("dataset"); path != "" {
		ds, err := readDatasetFile(path)
		if err != nil {
			return err
		}
		in = report.Input{Assessment: ds.Assessment, Submissions: ds.Submissions, Config: cfg}
	} else {
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if in, err = db.LoadExportInput(v.GetString("assessment"), cfg); err != nil {
			return err
		}
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	x, err := newExporter(cmd.Context(), v, v.GetBool("insights"))
	if err != nil {
		return err
	}
	res, err := x.Export(cmd.Context(), exporter.Request{
		Input:    in,
		Mode:     model.ExportMode(strings.ToLower(v.GetString("mode"))),
		Lang:     lang,
		Labeler:  appI18n.NewLabeler(lang),
		Insights: v.GetBool("insights"),
	})
	if err != nil {
		return err
	}

	out := v.GetString("output")
	if out == "-" {
		_, err = os.Stdout.Write(res.Body)
		return err
	}
	if out == "" {
		out = res.Filename
	} else if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, res.Filename)
	}
	if err := os.WriteFile(out, res.Body, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("report written", "path", out, "sheets", len(res.Workbook.Sheets), "bytes", len(res.Body))
	return nil
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	add := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			db, err := store.New(v.GetString("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			_, err = db.AddUser(args[0], v.GetString("display-name"), v.GetString("password"),
				model.UserRole(v.GetString("role")))
			return err
		},
	}
	add.Flags().String("db", "gradesheet.db", "SQLite database path")
	add.Flags().String("display-name", "", "Display name (defaults to the username)")
	add.Flags().String("password", "", "Password (or set GRADESHEET_PASSWORD)")
	add.Flags().String("role", string(model.UserRoleTeacher), "Role (teacher, admin)")
	addLogFlags(add)

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			db, err := store.New(v.GetString("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			users, err := db.ListUsers()
			if err != nil {
				return err
			}
			return printUsers(cmd.OutOrStdout(), users)
		},
	}
	list.Flags().String("db", "gradesheet.db", "SQLite database path")
	addLogFlags(list)

	cmd.AddCommand(add, list)
	return cmd
}

func printUsers(w io.Writer, users []model.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", u.ID, u.Username, u.Role, u.Active)
	}
	return tw.Flush()
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token USERNAME",
		Short: "Issue an API token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			db, err := store.New(v.GetString("db"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			u, err := db.GetUserByUsername(args[0])
			if err != nil {
				return err
			}
			if u == nil || !u.Active {
				return fmt.Errorf("no active user %q", args[0])
			}
			token, err := db.CreateAPIToken(u.ID, v.GetDuration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("db", "gradesheet.db", "SQLite database path")
	cmd.Flags().Duration("ttl", store.DefaultTokenTTL, "Token lifetime")
	addLogFlags(cmd)
	return cmd
}
