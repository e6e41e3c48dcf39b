package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/config"
	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// connectionsCmd returns the connections command.
func connectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage stored connections",
		Long: `Inspect and edit the encrypted connection stores directly.

Kinds: wordpress, kie, wordstat, telegram.`,
	}

	cmd.AddCommand(connectionsListCmd())
	cmd.AddCommand(addWordPressCmd())
	cmd.AddCommand(addKieCmd())
	cmd.AddCommand(addWordstatCmd())
	cmd.AddCommand(addTelegramCmd())
	cmd.AddCommand(connectionsDeleteCmd())
	cmd.AddCommand(connectionsToggleCmd("enable", true))
	cmd.AddCommand(connectionsToggleCmd("disable", false))
	cmd.AddCommand(connectionsVerifyCmd())

	return cmd
}

// cliLogger keeps store chatter off the terminal unless something goes wrong.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func loadStores() (*config.Config, *stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStores(cfg, cliLogger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func parseKindArg(raw string) (model.Kind, error) {
	kind, ok := model.ParseKind(raw)
	if !ok {
		return "", fmt.Errorf("unknown connection kind %q (want wordpress, kie, wordstat or telegram)", raw)
	}
	return kind, nil
}

func connectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <owner>",
		Short: "List an owner's connections of every kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			return listConnections(cmd.Context(), cmd.OutOrStdout(), st, args[0])
		},
	}
}

func listConnections(ctx context.Context, out io.Writer, st *stores, owner string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	wp, err := st.wordpress.List(ctx, owner)
	if err != nil {
		return err
	}
	kie, err := st.services.Kie().List(ctx, owner)
	if err != nil {
		return err
	}
	ws, err := st.services.Wordstat().List(ctx, owner)
	if err != nil {
		return err
	}
	tg, err := st.services.Telegram().List(ctx, owner)
	if err != nil {
		return err
	}

	if len(wp)+len(kie)+len(ws)+len(tg) == 0 {
		fmt.Fprintf(out, "No connections for %s\n", owner)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tNAME\tTARGET\tSTATUS\tLAST USED")
	for _, c := range wp {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", model.KindWordPress, c.ID, c.SiteName, c.SiteURL, statusLabel(c.Enabled), lastUsedLabel(c.LastUsed))
	}
	for _, c := range kie {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", model.KindKie, c.ID, c.Name, "-", statusLabel(c.Enabled), lastUsedLabel(c.LastUsed))
	}
	for _, c := range ws {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", model.KindWordstat, c.ID, c.Name, c.ClientID, statusLabel(c.Enabled), lastUsedLabel(c.LastUsed))
	}
	for _, c := range tg {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", model.KindTelegram, c.ID, c.BotName, c.ChatID, statusLabel(c.Enabled), lastUsedLabel(c.LastUsed))
	}
	return w.Flush()
}

func statusLabel(enabled bool) string {
	if enabled {
		return color.New(color.FgGreen).Sprint("enabled")
	}
	return color.New(color.FgYellow).Sprint("disabled")
}

func lastUsedLabel(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func printCreated(out io.Writer, kind model.Kind, id string) {
	fmt.Fprintf(out, "%s %s connection %s\n", color.New(color.FgGreen).Sprint("✓"), kind, id)
}

func addWordPressCmd() *cobra.Command {
	var in model.NewWordPressConnection
	cmd := &cobra.Command{
		Use:   "add-wordpress <owner>",
		Short: "Add a WordPress connection",
		Long: `Add a WordPress connection. The password should be an application
password created under Users > Profile in the WordPress admin.

Examples:
  wpgateway connections add-wordpress alice --site-name Blog \
    --site-url https://blog.example.com --username admin --password "xxxx xxxx"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			conn, err := st.wordpress.Add(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			printCreated(cmd.OutOrStdout(), model.KindWordPress, conn.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.SiteName, "site-name", "", "display name of the site")
	cmd.Flags().StringVar(&in.SiteURL, "site-url", "", "site base URL")
	cmd.Flags().StringVar(&in.Username, "username", "", "WordPress username")
	cmd.Flags().StringVar(&in.Password, "password", "", "WordPress application password")
	cmd.Flags().StringVar(&in.SiteLanguage, "language", "", "site language code (default en)")
	cmd.Flags().StringVar(&in.SiteDescription, "description", "", "free-form description")
	for _, f := range []string{"site-name", "site-url", "username", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func addKieCmd() *cobra.Command {
	var in model.NewKieConnection
	cmd := &cobra.Command{
		Use:   "add-kie <owner>",
		Short: "Add a Kie.ai connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			conn, err := st.services.Kie().Add(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			printCreated(cmd.OutOrStdout(), model.KindKie, conn.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "connection name")
	cmd.Flags().StringVar(&in.APIKey, "api-key", "", "Kie.ai API key")
	cmd.Flags().StringVar(&in.Description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("api-key")
	return cmd
}

func addWordstatCmd() *cobra.Command {
	var in model.NewWordstatConnection
	cmd := &cobra.Command{
		Use:   "add-wordstat <owner>",
		Short: "Add a Yandex Wordstat connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			conn, err := st.services.Wordstat().Add(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			printCreated(cmd.OutOrStdout(), model.KindWordstat, conn.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "connection name")
	cmd.Flags().StringVar(&in.ClientID, "client-id", "", "OAuth client id")
	cmd.Flags().StringVar(&in.ClientSecret, "client-secret", "", "OAuth client secret")
	cmd.Flags().StringVar(&in.RedirectURI, "redirect-uri", "", "OAuth redirect URI")
	cmd.Flags().StringVar(&in.Description, "description", "", "free-form description")
	for _, f := range []string{"name", "client-id", "client-secret"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func addTelegramCmd() *cobra.Command {
	var in model.NewTelegramConnection
	cmd := &cobra.Command{
		Use:   "add-telegram <owner>",
		Short: "Add a Telegram bot connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			conn, err := st.services.Telegram().Add(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			printCreated(cmd.OutOrStdout(), model.KindTelegram, conn.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.BotName, "bot-name", "", "bot display name")
	cmd.Flags().StringVar(&in.BotToken, "bot-token", "", "bot token from @BotFather")
	cmd.Flags().StringVar(&in.ChatID, "chat-id", "", "numeric chat id or @channel")
	cmd.Flags().StringVar(&in.Description, "description", "", "free-form description")
	for _, f := range []string{"bot-name", "bot-token", "chat-id"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func connectionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <owner> <kind> <id>",
		Short: "Delete a connection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[1])
			if err != nil {
				return err
			}
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			ok, err := deleteConnection(cmd.Context(), st, kind, args[0], args[2])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s connection %s not found", kind, args[2])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s connection %s\n", color.New(color.FgRed).Sprint("✗"), kind, args[2])
			return nil
		},
	}
}

func deleteConnection(ctx context.Context, st *stores, kind model.Kind, owner, id string) (bool, error) {
	switch kind {
	case model.KindWordPress:
		return st.wordpress.Delete(ctx, owner, id)
	case model.KindKie:
		return st.services.Kie().Delete(ctx, owner, id)
	case model.KindWordstat:
		return st.services.Wordstat().Delete(ctx, owner, id)
	case model.KindTelegram:
		return st.services.Telegram().Delete(ctx, owner, id)
	}
	return false, fmt.Errorf("unknown connection kind %q", kind)
}

func connectionsToggleCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <owner> <kind> <id>",
		Short: "Mark a connection " + verb + "d",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[1])
			if err != nil {
				return err
			}
			_, st, err := loadStores()
			if err != nil {
				return err
			}
			ok, err := setEnabled(cmd.Context(), st, kind, args[0], args[2], enabled)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s connection %s not found", kind, args[2])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s connection %s %s\n", kind, args[2], statusLabel(enabled))
			return nil
		},
	}
}

func setEnabled(ctx context.Context, st *stores, kind model.Kind, owner, id string, enabled bool) (bool, error) {
	switch kind {
	case model.KindWordPress:
		return st.wordpress.Update(ctx, owner, id, model.WordPressPatch{Enabled: &enabled})
	case model.KindKie:
		return st.services.Kie().Update(ctx, owner, id, model.KiePatch{Enabled: &enabled})
	case model.KindWordstat:
		return st.services.Wordstat().Update(ctx, owner, id, model.WordstatPatch{Enabled: &enabled})
	case model.KindTelegram:
		return st.services.Telegram().Update(ctx, owner, id, model.TelegramPatch{Enabled: &enabled})
	}
	return false, fmt.Errorf("unknown connection kind %q", kind)
}

func connectionsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <owner> <kind> <id>",
		Short: "Check a WordPress or Telegram connection's credentials",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[1])
			if err != nil {
				return err
			}
			cfg, st, err := loadStores()
			if err != nil {
				return err
			}
			logger := cliLogger()
			svc := newConnectionService(cfg, st, newClientRegistry(cfg, logger), nil, logger)

			var result model.VerifyResult
			switch kind {
			case model.KindWordPress:
				result, err = svc.VerifyWordPress(cmd.Context(), args[0], args[2])
			case model.KindTelegram:
				result, err = svc.VerifyTelegram(cmd.Context(), args[0], args[2])
			default:
				return fmt.Errorf("%s connections cannot be verified", kind)
			}
			if errors.Is(err, application.ErrConnectionNotFound) {
				return fmt.Errorf("%s connection %s not found", kind, args[2])
			}
			if err != nil {
				return err
			}
			return printVerify(cmd.OutOrStdout(), result)
		},
	}
}

func printVerify(out io.Writer, result model.VerifyResult) error {
	if result.Success {
		fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("OK"), result.Message)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", color.New(color.FgRed).Sprint("FAILED"), result.Message)
	return errors.New("verification failed")
}
