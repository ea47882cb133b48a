// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iucalendar/iucalendar/internal/config"
)

// statusProbeTimeout bounds each health probe.
const statusProbeTimeout = 2 * time.Second

// ProbeStatus is the result of one health probe.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	OK     bool   `json:"ok"`
	Code   int    `json:"code,omitempty"`
	Body   string `json:"body,omitempty"`
	Error  string `json:"error,omitempty"`
	Target string `json:"target"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	addr       string
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running iucal server",
		Long: `Query the liveness and readiness health endpoints of a running iucal
server through its observability address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", "", "observability address to query (default: metrics.addr from config)")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command. Unhealthy probes are reported in
// the output and do not fail the command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	addr := cfg.addr
	if addr == "" {
		loaded, err := config.Load(config.LoadOptions{
			ConfigFile:   configFile,
			Flags:        cmd.Flags(),
			SkipValidate: true,
		})
		if err != nil {
			return err
		}
		addr = loaded.Metrics.Addr
	}
	if addr == "" {
		return oops.Code("STATUS_NO_ADDR").
			Errorf("no observability address: pass --addr or set metrics.addr")
	}

	client := &http.Client{Timeout: statusProbeTimeout}
	statuses := []ProbeStatus{
		queryProbe(cmd.Context(), client, addr, "liveness"),
		queryProbe(cmd.Context(), client, addr, "readiness"),
	}

	if cfg.jsonOutput {
		output, err := formatStatusJSON(statuses)
		if err != nil {
			return err
		}
		cmd.Println(output)
		return nil
	}
	cmd.Print(formatStatusTable(statuses))
	return nil
}

// queryProbe issues GET /healthz/<probe> against addr.
func queryProbe(ctx context.Context, client *http.Client, addr, probe string) ProbeStatus {
	target := "http://" + addr + "/healthz/" + probe
	status := ProbeStatus{Probe: probe, Target: target}

	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		status.Error = fmt.Sprintf("invalid request: %v", err)
		return status
	}
	resp, err := client.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		status.Error = fmt.Sprintf("failed to read response: %v", err)
		return status
	}

	status.Code = resp.StatusCode
	status.Body = strings.TrimSpace(string(body))
	status.OK = resp.StatusCode == http.StatusOK
	return status
}

// formatStatusTable formats the probes as a human-readable table.
func formatStatusTable(statuses []ProbeStatus) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROBE\tSTATUS\tCODE\tDETAIL")
	_, _ = fmt.Fprintln(w, "-----\t------\t----\t------")

	for _, s := range statuses {
		switch {
		case s.Error != "":
			_, _ = fmt.Fprintf(w, "%s\tunreachable\t-\t%s\n", s.Probe, s.Error)
		case s.OK:
			_, _ = fmt.Fprintf(w, "%s\tok\t%d\t%s\n", s.Probe, s.Code, s.Body)
		default:
			_, _ = fmt.Fprintf(w, "%s\tfailing\t%d\t%s\n", s.Probe, s.Code, s.Body)
		}
	}

	_ = w.Flush()
	return buf.String()
}

// formatStatusJSON formats the probes as JSON.
func formatStatusJSON(statuses []ProbeStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
	}
	return string(data), nil
}
