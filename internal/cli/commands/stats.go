package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/qos-dev/qosdash/internal/cli/client"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command and its per-view subcommands.
func NewStatsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch location-visit statistics through the gateway",
		Long: `Fetch location-visit statistics through the gateway.

Responses are printed as returned by the analytics API. Requires a prior
'qosdash login'.

Examples:
  $ qosdash stats summary
  $ qosdash stats time --unit hour`,
	}

	cmd.AddCommand(newStatsViewCmd(opts, "summary", "Overall visit totals", (*client.Client).Summary))
	cmd.AddCommand(newStatsViewCmd(opts, "district", "Visits by district", (*client.Client).District))
	cmd.AddCommand(newStatsViewCmd(opts, "quest", "Visits by quest location", (*client.Client).Quest))
	cmd.AddCommand(newTimeStatsCmd(opts))

	return cmd
}

type statsFetch func(*client.Client, context.Context) (json.RawMessage, error)

func newStatsViewCmd(opts *Options, kind, short string, fetch statsFetch) *cobra.Command {
	return &cobra.Command{
		Use:   kind,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts, kind, fetch)
		},
	}
}

func newTimeStatsCmd(opts *Options) *cobra.Command {
	var unit string

	cmd := &cobra.Command{
		Use:   "time",
		Short: "Visits bucketed by time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts, "time", func(c *client.Client, ctx context.Context) (json.RawMessage, error) {
				return c.Time(ctx, unit)
			})
		},
	}

	cmd.Flags().StringVar(&unit, "unit", "", "Bucket size: hour, day or week (gateway default: day)")

	return cmd
}

func runStats(cmd *cobra.Command, opts *Options, kind string, fetch statsFetch) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}

	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'qosdash login' first")
	}

	body, err := fetch(a.client, cmd.Context())
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%s. Please run 'qosdash login' again", apiErr.Message)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if kind == "summary" && printFlatObject(out, body) {
		return nil
	}
	return printJSON(out, body)
}

// printFlatObject renders a JSON object of scalar values as a two-column
// table. It reports false, writing nothing, for any other shape.
func printFlatObject(w io.Writer, body []byte) bool {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || len(obj) == 0 {
		return false
	}

	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		switch v.(type) {
		case map[string]any, []any:
			return false
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tVALUE")
	fmt.Fprintln(tw, "──────\t─────")
	for _, k := range keys {
		v := obj[k]
		if v == nil {
			v = "null"
		}
		fmt.Fprintf(tw, "%s\t%v\n", k, v)
	}
	tw.Flush()

	return true
}

func printJSON(w io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
