package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	videocfg "github.com/goliatone/go-videoconfig"
)

func newTraceCommand(ctx *commandContext) *cobra.Command {
	var target sessionTarget
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trace <key>",
		Short: "Show every layer that holds a key, strongest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, target, func(_ context.Context, s *session) error {
				trace, err := s.manager.Trace(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					payload, err := trace.ToJSON()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
					return err
				}

				opt, _ := s.manager.Schema().Lookup(trace.Key)
				rows := make([][]string, 0, len(trace.Layers))
				for _, layer := range trace.Layers {
					value := "-"
					if layer.Found {
						value = opt.Label(layer.Value)
					}
					source := layer.Source
					if source == "" {
						source = "-"
					}
					rows = append(rows, []string{layer.Scope.Name, source, strconv.Itoa(layer.Scope.Priority), value})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Scope", "Layer", "Priority", "Value"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
				winner := "compiled"
				if w, ok := trace.Winner(); ok {
					winner = w.Scope.Name
				}
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("effective", statusOK, fmt.Sprintf("%s = %s (from %s)", trace.Key, opt.Label(trace.Effective), winner), colorize))
				if adjustedByValidator(trace) {
					fmt.Fprintln(out, renderStatusLine("note", statusWarn, "the capability validator adjusted the stored value", colorize))
				}
				return nil
			})
		},
	}
	target.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the trace as JSON")
	return cmd
}

// adjustedByValidator reports whether the edit buffer holds something other
// than the strongest stored value.
func adjustedByValidator(trace videocfg.Trace) bool {
	winner, ok := trace.Winner()
	if !ok || !trace.Resolved {
		return false
	}
	return fmt.Sprint(winner.Value) != fmt.Sprint(trace.Effective)
}
