package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ceros-embed/ceros-embed/internal/config"
	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configureContentType   string
	configureTitleField    string
	configureURLField      string
	configureEmbedField    string
	configureCreateDefault bool
	configureNoAssign      bool
	configureDryRun        bool
	tokenStdin             bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Save the content type and field mapping used by the entry editor.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		draft, err := configureDraft()
		if err != nil {
			return usageError(err)
		}
		a, err := interactiveApp(cmd)
		if err != nil {
			return err
		}
		return runConfigure(cmd.Context(), cmd.OutOrStdout(), a.screen, draft, configureDryRun)
	},
}

func init() {
	f := configureCmd.Flags()
	f.StringVar(&configureContentType, "content-type", "", "Content type id to link experiences on")
	f.StringVar(&configureTitleField, "title-field", "", "Field id receiving the experience title")
	f.StringVar(&configureURLField, "url-field", "", "Field id receiving the experience URL")
	f.StringVar(&configureEmbedField, "embed-field", "", "Field id receiving the embed code")
	f.BoolVar(&configureCreateDefault, "create-default", false, "Create the default content type and map its fields")
	f.BoolVar(&configureNoAssign, "no-assign-editor", false, "Do not register the app as the entry editor")
	f.BoolVar(&configureDryRun, "dry-run", false, "Validate the mapping without saving")
	f.BoolVar(&tokenStdin, "token-stdin", false, "Read the management token from stdin")
}

func configureDraft() (configscreen.Draft, error) {
	params := fieldmap.Parameters{
		ContentTypeID:    configureContentType,
		TitleFieldID:     configureTitleField,
		URLFieldID:       configureURLField,
		EmbedCodeFieldID: configureEmbedField,
	}
	if configureCreateDefault {
		if strings.TrimSpace(configureContentType) != "" {
			return configscreen.Draft{}, errors.New("--create-default and --content-type are mutually exclusive")
		}
		params = fieldmap.Parameters{ContentTypeID: fieldmap.CreateDefault}
	}
	draft := configscreen.Draft{Parameters: params}
	if configureNoAssign {
		off := false
		draft.AssignEditor = &off
	}
	return draft, nil
}

func runConfigure(ctx context.Context, out io.Writer, screen *configscreen.Screen, draft configscreen.Draft, dryRun bool) error {
	if dryRun {
		derived, err := screen.Preview(ctx, draft)
		if err != nil {
			return screenError(err)
		}
		if derived.Err != nil {
			return screenError(derived.Err)
		}
		fmt.Fprintf(out, "mapping is valid (assign editor: %t)\n", derived.AssignEditor)
		return nil
	}

	res, err := screen.Configure(ctx, draft, nil)
	if err != nil {
		return screenError(err)
	}
	p := res.Parameters
	fmt.Fprintf(out, "configured content type %s (title=%s url=%s embed=%s)\n",
		p.ContentTypeID, p.TitleFieldID, p.URLFieldID, p.EmbedCodeFieldID)
	return nil
}

// screenError reports the configuration screen message. Validation failures are usage errors.
func screenError(err error) error {
	msg := configscreen.UserMessage(err)
	var vErr *fieldmap.ValidationError
	if errors.As(err, &vErr) {
		return usageError(errors.New(msg))
	}
	return fmt.Errorf("%s (%w)", msg, err)
}

// interactiveApp builds the app for commands run by a person, prompting for the management
// token when neither the environment nor Vault provides one.
func interactiveApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadOptionalCMA()
	if err != nil {
		return nil, usageError(err)
	}
	if cfg.CMAToken == "" && !cfg.UsesVaultToken() {
		token, err := readCMAToken(cmd)
		if err != nil {
			return nil, usageError(err)
		}
		cfg.CMAToken = token
	}
	if err := cfg.ValidateCMA(); err != nil {
		return nil, usageError(err)
	}
	return newApp(cmd.Context(), cfg, commandLogger(cmd))
}

func readCMAToken(cmd *cobra.Command) (string, error) {
	if tokenStdin {
		b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
		if err != nil {
			return "", err
		}
		token := strings.TrimSpace(string(b))
		if token == "" {
			return "", errors.New("management token is empty")
		}
		return token, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no management token provided (set CMA_TOKEN, configure Vault, or use --token-stdin)")
	}

	cmd.Print("Management token: ")
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(token))) == 0 {
		return "", errors.New("management token is empty")
	}
	return strings.TrimSpace(string(token)), nil
}
