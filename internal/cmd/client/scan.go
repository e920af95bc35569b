package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScanCommand constructs the `scan` command: stream a range of records
// from the server and print one JSON line per record.
func NewScanCommand(baseURL BaseURLFunc) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan records in a space",
		RunE: func(cmd *cobra.Command, _ []string) error {
			space, _ := cmd.Flags().GetString("space")
			filter, _ := cmd.Flags().GetString("filter")
			fetch, _ := cmd.Flags().GetString("fetch")
			reverse, _ := cmd.Flags().GetBool("reverse")
			skipCorrupt, _ := cmd.Flags().GetBool("skip-corrupt")
			start, _ := cmd.Flags().GetUint64("start")
			end, _ := cmd.Flags().GetUint64("end")
			limit, _ := cmd.Flags().GetInt("limit")
			if space == "" {
				return fmt.Errorf("--space is required")
			}

			q := url.Values{}
			q.Set("space", space)
			if filter != "" {
				q.Set("filter", filter)
			}
			if fetch != "" {
				q.Set("fetch", fetch)
			}
			if reverse {
				q.Set("reverse", "true")
			}
			if skipCorrupt {
				q.Set("skip_corrupt", "true")
			}
			if start > 0 {
				q.Set("start", strconv.FormatUint(start, 10))
			}
			if end > 0 {
				q.Set("end", strconv.FormatUint(end, 10))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL()+"/v1/scan?"+q.Encode(), nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("scan: %s: %s", resp.Status, body)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return readSSE(resp.Body, func(ev sseEvent) error {
				switch ev.Event {
				case "end":
					return io.EOF
				case "error":
					var e struct {
						Error string `json:"error"`
					}
					_ = json.Unmarshal([]byte(ev.Data), &e)
					return fmt.Errorf("scan failed: %s", e.Error)
				}
				var item struct {
					Space   string `json:"space"`
					Seq     uint64 `json:"seq"`
					Payload []byte `json:"payload"`
				}
				if err := json.Unmarshal([]byte(ev.Data), &item); err != nil {
					return err
				}
				return enc.Encode(decodedItem(item.Space, item.Seq, item.Payload))
			})
		},
	}
	scanCmd.Flags().StringP("space", "s", "", "Space to scan")
	scanCmd.Flags().String("filter", "", "CEL filter (server-side)")
	scanCmd.Flags().String("fetch", "", "Read-ahead mode: default|single|small|large")
	scanCmd.Flags().Bool("reverse", false, "Scan descending")
	scanCmd.Flags().Bool("skip-corrupt", false, "Skip records that fail to decode")
	scanCmd.Flags().Uint64("start", 0, "Inclusive start sequence (0 = first)")
	scanCmd.Flags().Uint64("end", 0, "Exclusive end sequence (0 = last)")
	scanCmd.Flags().Int("limit", 0, "Stop after N records (0 = all)")
	return scanCmd
}
