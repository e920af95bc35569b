package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// NewAppendCommand constructs the `append` command: append one record per
// positional argument to a space.
func NewAppendCommand(baseURL BaseURLFunc) *cobra.Command {
	appendCmd := &cobra.Command{
		Use:   "append [payload...]",
		Short: "Append records to a space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			header, _ := cmd.Flags().GetString("header")
			if space == "" {
				return fmt.Errorf("--space is required")
			}

			type rec struct {
				Header  []byte `json:"header,omitempty"`
				Payload []byte `json:"payload"`
			}
			recs := make([]rec, 0, len(args))
			for _, a := range args {
				recs = append(recs, rec{Header: []byte(header), Payload: []byte(a)})
			}
			body, err := json.Marshal(map[string]any{"space": space, "records": recs})
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				baseURL()+"/v1/records/append", bytes.NewReader(body))
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
				return fmt.Errorf("append: %s: %s", resp.Status, b)
			}
			var out struct {
				Seqs []uint64 `json:"seqs"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seqs:", out.Seqs)
			return nil
		},
	}
	appendCmd.Flags().StringP("space", "s", "", "Space to append into")
	appendCmd.Flags().String("header", "", "Optional header attached to every record (JSON string map)")
	return appendCmd
}
