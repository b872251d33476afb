// Package cli implements the sttctl command tree.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/speechtotext/internal/client"
)

type options struct {
	serverURL string
	tokenFile string
}

func NewRootCmd(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sttctl",
		Short:         "Speech-to-text relay client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("STTCTL_SERVER", "http://localhost:8080"), "Server base URL")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "Where the login token is kept")

	root.AddCommand(newRegisterCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newTranscribeCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	return root
}

// client builds an API client and loads a saved token when one exists.
func (o *options) client() *client.Client {
	c := client.New(o.serverURL, nil)
	if tok, err := loadToken(o.tokenFile); err == nil {
		c.SetToken(tok)
	}
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sttctl_token"
	}
	return filepath.Join(home, ".sttctl_token")
}
