package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/layering"
	"github.com/goliatone/go-videoconfig/pkg/state"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var target sessionTarget
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report stored values that are ignored or corrected on load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, target, func(runCtx context.Context, s *session) error {
				schema := s.manager.Schema()
				sources := layering.TitleChain(target.title, target.revision).Ordered()

				var rows [][]string
				for _, source := range sources {
					values, _, ok, err := s.store.Load(runCtx, state.Ref{Source: source})
					if err != nil {
						return fmt.Errorf("load %s: %w", source.Identifier(), err)
					}
					if !ok {
						continue
					}
					_, dropped := videocfg.NewLayer(source.Identifier(), values).Normalize(schema)
					for _, key := range dropped {
						rows = append(rows, []string{source.Identifier(), key, fmt.Sprint(values[key]), "ignored"})
					}
				}

				stack, err := state.Resolver{Store: s.store}.ResolveWithDefaults(runCtx, schema, sources...)
				if err != nil {
					return err
				}
				snapshot := s.manager.Snapshot()
				for _, key := range schema.Keys() {
					trace := stack.Trace(key)
					winner, ok := trace.Winner()
					if !ok || winner.Scope.Name == "compiled" {
						continue
					}
					effective, _ := snapshot.Get(key)
					if fmt.Sprint(effective) == fmt.Sprint(winner.Value) {
						continue
					}
					opt, _ := schema.Lookup(key)
					rows = append(rows, []string{winner.Source, key, opt.Label(winner.Value), "loaded as " + opt.Label(effective)})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if len(rows) == 0 {
					fmt.Fprintln(out, renderStatusLine("validate", statusOK, "stored layers load unchanged", colorize))
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Layer", "Key", "Stored", "Result"}, rows, nil))
				if strict {
					return fmt.Errorf("%d stored value(s) ignored or corrected", len(rows))
				}
				fmt.Fprintln(out, renderStatusLine("validate", statusWarn, fmt.Sprintf("%d stored value(s) ignored or corrected", len(rows)), colorize))
				return nil
			})
		},
	}
	target.bind(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when anything is ignored or corrected")
	return cmd
}
