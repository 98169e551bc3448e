package system

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carelog/carelog_backend/pkg/cipher"
)

const configTemplate = `service:
  name: carelog_backend
  environment: development

store:
  path: records.enc
  key_path: secret.key

authentication:
  token:
    local_key_hex: %q
  require_assignment_default: true

drafter:
  provider: template

logging:
  level: info
  format: json
`

// NewInitCommand writes a starter config.yaml with a fresh token key and
// generates the store encryption key. Existing files are left alone.
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate keys and a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}

			if _, err := os.Stat(cfgPath); err == nil {
				fmt.Printf("%s already exists, leaving it untouched.\n", cfgPath)
			} else {
				tokenKey := make([]byte, 32)
				if _, err := rand.Read(tokenKey); err != nil {
					return fmt.Errorf("failed to generate token key: %w", err)
				}
				content := fmt.Sprintf(configTemplate, hex.EncodeToString(tokenKey))
				if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
					return fmt.Errorf("failed to write %s: %w", cfgPath, err)
				}
				fmt.Printf("Wrote %s with a fresh token key.\n", cfgPath)
			}

			if _, err := cipher.LoadOrCreateKey("secret.key"); err != nil {
				return fmt.Errorf("failed to create store key: %w", err)
			}
			fmt.Println("Store encryption key ready at secret.key.")
			return nil
		},
	}

	return cmd
}
