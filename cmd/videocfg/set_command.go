package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	videocfg "github.com/goliatone/go-videoconfig"
)

type assignment struct {
	key   string
	value string
	reset bool
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		out = append(out, assignment{key: key, value: strings.TrimSpace(value), reset: strings.TrimSpace(value) == ""})
	}
	return out, nil
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	var target sessionTarget
	var global bool

	cmd := &cobra.Command{
		Use:   "set KEY=VALUE [KEY=VALUE...]",
		Short: "Edit settings and save them to the title or global layer",
		Long: "Edit settings and save them. With --title the assigned keys are saved as\n" +
			"title overrides, otherwise (or with --global) to the global layer. A key\n" +
			"equal to the title default is removed from the title layer. An empty\n" +
			"value (KEY=) restores the default. Enum options accept their labels.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, target, func(runCtx context.Context, s *session) error {
				err := s.manager.Edit(func(set *videocfg.OptionSet) error {
					for _, a := range assignments {
						if a.reset {
							if err := set.Reset(a.key); err != nil {
								return err
							}
							continue
						}
						if err := set.Set(a.key, a.value); err != nil {
							return err
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
				var plan videocfg.SavePlan
				layer := "global"
				if target.title != "" && !global {
					layer = "title " + target.title
					keys := make([]string, len(assignments))
					for i, a := range assignments {
						keys[i] = a.key
					}
					plan, err = s.manager.SaveTitleKeys(runCtx, keys...)
				} else {
					plan, err = s.manager.SaveGlobal(runCtx)
				}
				if err != nil {
					return fmt.Errorf("save %s layer: %w", layer, err)
				}
				printSavePlan(cmd, s.manager.Schema(), layer, plan)
				return nil
			})
		},
	}
	target.bind(cmd)
	cmd.Flags().BoolVar(&global, "global", false, "Save to the global layer even when a title is applied")
	return cmd
}

func printSavePlan(cmd *cobra.Command, schema *videocfg.Schema, layer string, plan videocfg.SavePlan) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, plan.Writes.Len()+len(plan.Deletes))
	for _, key := range plan.Writes.Keys() {
		value, _ := plan.Writes.Get(key)
		opt, _ := schema.Lookup(key)
		rows = append(rows, []string{key, "write", opt.Label(value)})
	}
	deletes := slices.Clone(plan.Deletes)
	slices.Sort(deletes)
	for _, key := range deletes {
		rows = append(rows, []string{key, "remove", ""})
	}
	colorize := shouldColorize(out)
	if len(rows) == 0 {
		fmt.Fprintln(out, renderStatusLine("saved", statusOK, layer+" holds no overrides", colorize))
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Key", "Action", "Value"}, rows, nil))
	fmt.Fprintln(out, renderStatusLine("saved", statusOK, fmt.Sprintf("%s: %d written, %d removed", layer, plan.Writes.Len(), len(plan.Deletes)), colorize))
}
