package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/benaskins/vigil/internal/daemon"
	"github.com/benaskins/vigil/internal/updater"
)

func apiClient() *http.Client {
	socketPath := defaultSocketPath()
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socketPath)
			},
		},
	}
}

func apiGet(path string, v any) error {
	resp, err := apiClient().Get("http://vigil" + path)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w (is the vigil daemon running?)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func apiPost(path string, v any) error {
	resp, err := apiClient().Post("http://vigil"+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w (is the vigil daemon running?)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node and indexer status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st daemon.Status
		if err := apiGet("/v1/status", &st); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROCESS\tSTATE\tPID\tUPTIME\tSYNCED")
		fmt.Fprintf(w, "bitcoind\t%s\n", procRow(st.Node, st.NodeSynced))
		fmt.Fprintf(w, "electrs\t%s\n", procRow(st.Indexer, st.IndexerSynced))
		w.Flush()

		if st.Chain != nil {
			fmt.Printf("\nchain %s: block %d of %d (%.4f%%)\n",
				st.Chain.Chain, st.Chain.Blocks, st.Chain.Headers,
				st.Chain.VerificationProgress*100)
			if st.Chain.InitialBlockDownload {
				fmt.Println("initial block download in progress")
			}
		}
		if st.LastRPCError != "" {
			fmt.Printf("\nlast RPC error: %s\n", st.LastRPCError)
		}
		if st.UpdateAvailable {
			fmt.Println("\nnew binaries available — run `vigil update`")
		}
		return nil
	},
}

func procRow(p daemon.ProcessStatus, synced bool) string {
	if !p.Running {
		return "stopped\t-\t-\t-"
	}
	syncedStr := "no"
	if synced {
		syncedStr = "yes"
	}
	uptime := (time.Duration(p.UptimeSeconds) * time.Second).String()
	return fmt.Sprintf("running\t%d\t%s\t%s", p.PID, uptime, syncedStr)
}

// start command
var startCmd = &cobra.Command{
	Use:       "start [node|indexer]",
	Short:     "Start a managed process",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"node", "indexer"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiPost("/v1/"+args[0]+"/start", nil); err != nil {
			return err
		}
		fmt.Printf("%s starting\n", args[0])
		return nil
	},
}

// stop command
var stopCmd = &cobra.Command{
	Use:       "stop [node|indexer|all]",
	Short:     "Stop a managed process",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"node", "indexer", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := []string{args[0]}
		if args[0] == "all" {
			// Indexer first so it never sees the node vanish mid-read.
			targets = []string{"indexer", "node"}
		}
		for _, target := range targets {
			if err := apiPost("/v1/"+target+"/stop", nil); err != nil {
				return err
			}
			fmt.Printf("%s stopping\n", target)
		}
		return nil
	},
}

// logs command
var logLines int

var logsCmd = &cobra.Command{
	Use:       "logs [node|indexer]",
	Short:     "Show recent process output",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"node", "indexer"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Process string   `json:"process"`
			Lines   []string `json:"lines"`
		}
		path := fmt.Sprintf("/v1/logs/%s?n=%d", args[0], logLines)
		if err := apiGet(path, &result); err != nil {
			return err
		}
		for _, line := range result.Lines {
			fmt.Println(line)
		}
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install new bitcoind and electrs binaries from the downloads folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result updater.Result
		if err := apiPost("/v1/update", &result); err != nil {
			return err
		}

		switch result.Outcome {
		case updater.OutcomeUpdated:
			fmt.Printf("updated:\n%s\n", result.Detail)
		case updater.OutcomeBuilderFound:
			fmt.Printf("no downloads folder; build app found at %s\n", result.BuilderPath)
		case updater.OutcomeBuilderNotFound:
			fmt.Println("no downloads folder and no build app installed")
		case updater.OutcomeBinariesMissing:
			fmt.Println("downloads folder has no binaries directory")
		case updater.OutcomeNothingToUpdate:
			fmt.Println("no versioned builds to install")
		default:
			fmt.Printf("unexpected outcome: %s\n", result.Outcome)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 100, "Number of lines to show")
	rootCmd.AddCommand(statusCmd, startCmd, stopCmd, logsCmd, updateCmd)
}
