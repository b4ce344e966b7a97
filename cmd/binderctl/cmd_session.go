package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"binderflow/backend/internal/config"
	"binderflow/backend/internal/repository"
	"binderflow/backend/internal/services"
	"binderflow/backend/pkg/models"
)

var sessionFlags struct {
	format string
	output string
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "List, inspect, export and import stored sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: withSessions(func(cmd *cobra.Command, args []string, sessions *services.SessionService) error {
		list, err := sessions.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPROJECT\tSTAGE\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.SessionID, s.ProjectName, s.CurrentStage, s.LastUpdated.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	}),
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session document",
	Args:  cobra.ExactArgs(1),
	RunE: withSessions(func(cmd *cobra.Command, args []string, sessions *services.SessionService) error {
		format, err := models.ParseExportFormat(sessionFlags.format)
		if err != nil {
			return err
		}
		data, err := sessions.Export(cmd.Context(), args[0], format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}),
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Write a session document to a file",
	Args:  cobra.ExactArgs(1),
	RunE: withSessions(func(cmd *cobra.Command, args []string, sessions *services.SessionService) error {
		format, err := models.ParseExportFormat(sessionFlags.format)
		if err != nil {
			return err
		}
		data, err := sessions.Export(cmd.Context(), args[0], format)
		if err != nil {
			return err
		}
		path := sessionFlags.output
		if path == "" {
			path = "session_" + args[0] + "." + string(format)
		}
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}),
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a session document under a new ID",
	Args:  cobra.ExactArgs(1),
	RunE: withSessions(func(cmd *cobra.Command, args []string, sessions *services.SessionService) error {
		format, err := models.ParseExportFormat(sessionFlags.format)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fs, args[0])
		if err != nil {
			return err
		}
		ws, err := sessions.Import(cmd.Context(), format, data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ws.SessionID)
		return nil
	}),
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: withSessions(func(cmd *cobra.Command, args []string, sessions *services.SessionService) error {
		return sessions.Delete(cmd.Context(), args[0])
	}),
}

func init() {
	for _, c := range []*cobra.Command{sessionShowCmd, sessionExportCmd, sessionImportCmd} {
		c.Flags().StringVar(&sessionFlags.format, "format", "json", "Document format: json or yaml")
	}
	sessionExportCmd.Flags().StringVarP(&sessionFlags.output, "output", "o", "", "Output path (default: session_<id>.<format>)")

	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionExportCmd, sessionImportCmd, sessionDeleteCmd)
}

// withSessions opens the configured store for the duration of one command.
func withSessions(run func(cmd *cobra.Command, args []string, sessions *services.SessionService) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		repo, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()
		return run(cmd, args, services.NewSessionService(repo))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	return repository.Open(ctx, cfg.DB.Driver, cfg.DSN())
}
