package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/http/dto"
	"github.com/cesargomez89/cuesplit/internal/httpclient"
)

func newJobsCommand() *cobra.Command {
	var addr string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs known to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := httpclient.NewClient(nil, addr).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, jobs)
			}
			fmt.Fprintln(out, renderJobs(jobs, isTerminal(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", constants.DefaultStatusAddr, "Server base URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func newSubmitCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "submit <album-dir>",
		Short: "Queue an album directory on a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Relative paths mean the caller's directory, not the server's.
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			resp, err := httpclient.NewClient(nil, addr).Submit(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s\n", resp.JobID, resp.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", constants.DefaultStatusAddr, "Server base URL")
	return cmd
}

func newLogCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "log <job-id>",
		Short: "Print the log of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := httpclient.NewClient(nil, addr).Log(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", constants.DefaultStatusAddr, "Server base URL")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderJobs draws one row per job in id order.
func renderJobs(jobs map[string]dto.JobResponse, styled bool) string {
	if len(jobs) == 0 {
		return "No jobs"
	}

	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})

	tw := table.NewWriter()
	if styled {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	tw.AppendHeader(table.Row{"ID", "Status", "Pairs", "Path", "Message"})
	for _, id := range ids {
		j := jobs[id]
		tw.AppendRow(table.Row{id, j.Status, len(j.Details), j.Path, j.Message})
	}
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
