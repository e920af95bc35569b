package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// NewTrimCommand constructs the `trim` command: delete records below a
// sequence cutoff.
func NewTrimCommand(baseURL BaseURLFunc) *cobra.Command {
	trimCmd := &cobra.Command{
		Use:   "trim",
		Short: "Delete records below a sequence cutoff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			space, _ := cmd.Flags().GetString("space")
			before, _ := cmd.Flags().GetUint64("before")
			if space == "" {
				return fmt.Errorf("--space is required")
			}
			if before == 0 {
				return fmt.Errorf("--before is required")
			}
			body, _ := json.Marshal(map[string]any{"space": space, "beforeSeq": before})
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				baseURL()+"/v1/records/trim", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("trim: %s: %s", resp.Status, b)
			}
			var out struct {
				Deleted int `json:"deleted"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted:", out.Deleted)
			return nil
		},
	}
	trimCmd.Flags().StringP("space", "s", "", "Space to trim")
	trimCmd.Flags().Uint64("before", 0, "Delete records with seq below this value")
	return trimCmd
}
