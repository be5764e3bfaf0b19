package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamed0406/statusoverview/internal/domain"
)

type overview struct {
	domain.OverviewReport
	AllMonitorsCount int `json:"allMonitorsCount"`
	DisabledCount    int `json:"disabledCount"`
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show up/down/pending status per monitor and location",
	RunE: func(cmd *cobra.Command, args []string) error {
		locations, _ := cmd.Flags().GetStringSlice("locations")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		raw, _ := cmd.Flags().GetBool("json")

		q := url.Values{}
		if len(locations) > 0 {
			q.Set("locations", strings.Join(locations, ","))
		}
		if from != "" {
			q.Set("from", from)
		}
		if to != "" {
			q.Set("to", to)
		}
		path := "/api/overview"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var ov overview
		if err := newClient().getJSON(cmd.Context(), path, &ov); err != nil {
			return err
		}
		if raw {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ov)
		}
		printOverview(cmd.OutOrStdout(), &ov)
		return nil
	},
}

func printOverview(w io.Writer, ov *overview) {
	fmt.Fprintf(w, "up: %d  down: %d  pending: %d  (monitors: %d, disabled: %d)\n",
		ov.Up, ov.Down, ov.Pending, ov.AllMonitorsCount, ov.DisabledCount)

	type row struct{ key, status, detail string }
	var rows []row
	for k, m := range ov.DownConfigs {
		rows = append(rows, row{k, string(m.Status), m.Ping.Error})
	}
	for k, m := range ov.UpConfigs {
		rows = append(rows, row{k, string(m.Status), ""})
	}
	for k, m := range ov.PendingConfigs {
		rows = append(rows, row{k, string(m.Status), ""})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.key, r.status, r.detail)
	}
	tw.Flush()
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List or register monitors",
}

var monitorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered monitors",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ms []domain.Monitor
		if err := newClient().getJSON(cmd.Context(), "/api/monitors", &ms); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CONFIG\tQUERY\tENABLED\tLOCATIONS\tURL")
		for _, m := range ms {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", m.ConfigID, m.QueryID, m.Enabled, strings.Join(m.Locations, ","), m.URL)
		}
		return tw.Flush()
	},
}

var monitorsAddCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Register a monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.TrimSpace(args[0])
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid URL %q", args[0])
		}
		name, _ := cmd.Flags().GetString("name")
		locations, _ := cmd.Flags().GetStringSlice("locations")
		queryID, _ := cmd.Flags().GetString("query-id")
		disabled, _ := cmd.Flags().GetBool("disabled")
		enabled := !disabled

		body := map[string]any{
			"name":      name,
			"url":       raw,
			"locations": locations,
			"query_id":  queryID,
			"enabled":   enabled,
		}
		var resp struct {
			Monitor domain.Monitor `json:"monitor"`
			Ping    *domain.Ping   `json:"ping"`
		}
		if err := newClient().postJSON(cmd.Context(), "/api/monitors", body, &resp); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Added %s (config %s, query %s)\n", resp.Monitor.URL, resp.Monitor.ConfigID, resp.Monitor.QueryID)
		if p := resp.Ping; p != nil {
			down, _ := p.Counts()
			verdict := "up"
			if down > 0 {
				verdict = "down: " + p.Error
			}
			fmt.Fprintf(out, "First check from %s: %s\n", p.Location, verdict)
		}
		return nil
	},
}
