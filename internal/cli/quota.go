package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/sovgauge/pkg/httpclient"
)

func newQuotaCmd(st *state) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show the remaining daily quota of a running service",
		Long: `Budgets live in the serving process, so quota asks a running
"sovgauge serve" instance for its remaining daily calls per service.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				serverURL = "http://localhost" + st.cfg.Server.Addr
			}

			client, err := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(serverURL, "/")+"/", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("querying %s: %w", serverURL, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return &httpclient.StatusError{StatusCode: resp.StatusCode}
			}

			var status map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decoding status: %w", err)
			}
			return printQuota(cmd, status)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "service base URL (default http://localhost<server.addr>)")
	return cmd
}

func printQuota(cmd *cobra.Command, status map[string]any) error {
	var names []string
	for k := range status {
		if strings.HasSuffix(k, "_remaining") {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	for _, k := range names {
		if _, err := fmt.Fprintf(out, "%-12s %v\n", strings.TrimSuffix(k, "_remaining"), status[k]); err != nil {
			return err
		}
	}
	return nil
}
