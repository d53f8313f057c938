package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// statusTimeout bounds the whole status request.
const statusTimeout = 5 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the running appliance's status JSON.",
	Long: `Queries the web status endpoint of a running binclock daemon on this
machine and prints the JSON snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Web.Addr == "" {
			return fmt.Errorf("the web endpoint is disabled in the configuration")
		}

		addr := cfg.Web.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "127.0.0.1" + addr
		}
		url := "http://" + addr + "/index.json"

		client := &http.Client{Timeout: statusTimeout}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("query %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("query %s: unexpected status %s", url, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
