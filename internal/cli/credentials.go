package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atlasdrive/webdav/pkg/credstore"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the single-tenant Basic-auth credential",
	Long:  `Set or clear the bcrypt-hashed username/password used by single-tenant Basic auth (spec §4.2).`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [username] [password]",
	Short: "Set the configured credential",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCredStore()
		if err != nil {
			return err
		}
		if err := store.Set(args[0], args[1]); err != nil {
			return fmt.Errorf("set credential: %w", err)
		}
		fmt.Printf("Credential for %s saved.\n", args[0])
		return nil
	},
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the configured credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCredStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear credential: %w", err)
		}
		fmt.Println("Credential removed.")
		return nil
	},
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured username",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCredStore()
		if err != nil {
			return err
		}
		username, ok := store.Username()
		if !ok {
			fmt.Println("No credential configured.")
			return nil
		}
		fmt.Println(username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsClearCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
}

func openCredStore() (*credstore.Store, error) {
	configDir := viper.GetString("config-dir")
	if configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		configDir = filepath.Join(base, "@filen", "webdav")
	}
	return credstore.Open(filepath.Join(configDir, "credentials.json"))
}
