package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var target sessionTarget
	var save bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore tracked settings to the title (or compiled) defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, target, func(runCtx context.Context, s *session) error {
				if err := s.manager.ResetTitle(runCtx); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				changed := s.manager.Diff()
				colorize := shouldColorize(out)
				if len(changed) == 0 {
					fmt.Fprintln(out, renderStatusLine("reset", statusInfo, "settings already match the defaults", colorize))
				} else {
					rows := make([][]string, 0, len(changed))
					snapshot := s.manager.Snapshot()
					for _, key := range changed {
						value, _ := snapshot.Get(key)
						opt, _ := s.manager.Schema().Lookup(key)
						rows = append(rows, []string{key, opt.Label(value)})
					}
					fmt.Fprintln(out, renderTable([]string{"Key", "Default"}, rows, nil))
				}
				if !save {
					if len(changed) > 0 {
						fmt.Fprintln(out, renderStatusLine("reset", statusWarn, "not saved; pass --save to persist", colorize))
					}
					return nil
				}
				if target.title != "" {
					plan, err := s.manager.SaveTitle(runCtx)
					if err != nil {
						return err
					}
					printSavePlan(cmd, s.manager.Schema(), "title "+target.title, plan)
					return nil
				}
				plan, err := s.manager.SaveGlobal(runCtx)
				if err != nil {
					return err
				}
				printSavePlan(cmd, s.manager.Schema(), "global", plan)
				return nil
			})
		},
	}
	target.bind(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Persist the reset")
	return cmd
}
