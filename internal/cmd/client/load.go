package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rzbill/rangeflow/pkg/id"
	"github.com/spf13/cobra"
)

// NewLoadCommand constructs the `load` command: seed a space with N
// generated records, batched per request.
func NewLoadCommand(baseURL BaseURLFunc) *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Seed a space with generated records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			space, _ := cmd.Flags().GetString("space")
			count, _ := cmd.Flags().GetInt("count")
			batch, _ := cmd.Flags().GetInt("batch")
			if space == "" {
				return fmt.Errorf("--space is required")
			}
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			if batch <= 0 {
				batch = 128
			}

			gen := id.NewGenerator()
			type rec struct {
				Payload []byte `json:"payload"`
			}
			total := 0
			for total < count {
				n := count - total
				if n > batch {
					n = batch
				}
				recs := make([]rec, 0, n)
				for i := 0; i < n; i++ {
					recs = append(recs, rec{Payload: []byte(fmt.Sprintf(`{"id":%q,"n":%d}`, gen.Next().String(), total+i))})
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
				if resp.StatusCode != http.StatusOK {
					b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
					resp.Body.Close()
					return fmt.Errorf("load: %s: %s", resp.Status, b)
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				total += n
			}
			fmt.Fprintln(cmd.OutOrStdout(), "loaded:", total)
			return nil
		},
	}
	loadCmd.Flags().StringP("space", "s", "", "Space to load into")
	loadCmd.Flags().IntP("count", "c", 1000, "Number of records to append")
	loadCmd.Flags().Int("batch", 128, "Records per append request")
	return loadCmd
}
