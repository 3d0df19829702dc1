package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/qinglingtaxue/youtube--sub001/pkg/auth"
	"github.com/qinglingtaxue/youtube--sub001/pkg/notify"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
	"github.com/qinglingtaxue/youtube--sub001/pkg/validation"
)

var (
	notifyWindow string
	tokenSubject string
	tokenRole    string
)

func init() {
	rootCmd.AddCommand(notifyCmd, importCmd, tokenCmd)

	notifyCmd.Flags().StringVar(&notifyWindow, "window", "*", `Changed window, or "*" for all`)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleViewer, "Role: viewer or admin")
	_ = tokenCmd.MarkFlagRequired("subject")
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Tell opportunityd that a snapshot changed",
	Long: `Publish a snapshot change notification to the listener configured under
notify.url. The daemon drops its cached graphs and centrality for the window.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := validation.InvalidateRequest{Window: notifyWindow}
		if err := validation.ValidateInvalidateRequest(&req); err != nil {
			return err
		}
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Notify.URL == "" {
			return errors.New("notify.url is not configured")
		}
		pub, err := notify.Dial(cfg.Notify)
		if err != nil {
			return err
		}
		defer pub.Close()

		if req.All() {
			err = pub.PublishAll()
		} else {
			err = pub.Publish(req.TimeWindow())
		}
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "notified %s\n", req.Window)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a record export into the PostgreSQL source",
	Long: `Decode a JSON or YAML export (optionally snappy-compressed, *.sz) and upsert
its records into the table configured under source.postgres.

Examples:
  oppctl import records.json.sz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Source.Type != source.TypePostgres {
			return fmt.Errorf("import needs a postgres source, configured %q", cfg.Source.Type)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		doc, err := source.DecodeDocument(filepath.Base(args[0]), data)
		if err != nil {
			return err
		}

		pg, err := source.NewPostgres(cmd.Context(), cfg.Source.Postgres, source.WithLogger(logger))
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Upsert(cmd.Context(), doc.Records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", len(doc.Records))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is not configured")
		}
		m, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		token, err := m.GenerateToken(tokenSubject, tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
