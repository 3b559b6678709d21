package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	videocfg "github.com/goliatone/go-videoconfig"
)

type settingRow struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Default any    `json:"default"`
	Source  string `json:"source"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var target sessionTarget
	var changed bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [section-or-key...]",
		Short: "Show effective settings and the layer each value comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, target, func(_ context.Context, s *session) error {
				rows, err := collectSettings(s.manager, args, changed)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No settings match")
					return nil
				}
				schema := s.manager.Schema()
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					opt, _ := schema.Lookup(row.Key)
					table = append(table, []string{row.Key, opt.Label(row.Value), opt.Label(row.Default), row.Source})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value", "Default", "Source"}, table, nil))
				return nil
			})
		},
	}
	target.bind(cmd)
	cmd.Flags().BoolVar(&changed, "changed", false, "Only show values that differ from the compiled default")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

// collectSettings lists the edit buffer in schema order. filters match a
// whole section ("VR") or a key, alias spellings included.
func collectSettings(m *videocfg.Manager, filters []string, changedOnly bool) ([]settingRow, error) {
	schema := m.Schema()
	wanted := map[string]bool{}
	sections := map[string]bool{}
	for _, filter := range filters {
		filter = strings.TrimSpace(filter)
		if canonical, ok := schema.Canonical(filter); ok {
			wanted[canonical] = true
			continue
		}
		if !strings.Contains(filter, ".") {
			sections[strings.TrimPrefix(filter, "Video_")] = true
			continue
		}
		return nil, fmt.Errorf("%w: %s", videocfg.ErrUnknownOption, filter)
	}

	snapshot := m.Snapshot()
	var rows []settingRow
	for _, opt := range schema.Options() {
		if len(filters) > 0 && !wanted[opt.Key] && !sections[opt.Section()] {
			continue
		}
		value, _ := snapshot.Get(opt.Key)
		if changedOnly && fmt.Sprint(value) == fmt.Sprint(opt.Default) {
			continue
		}
		row := settingRow{Key: opt.Key, Value: value, Default: opt.Default, Source: "compiled"}
		trace, err := m.Trace(opt.Key)
		if err != nil {
			return nil, err
		}
		if winner, ok := trace.Winner(); ok {
			row.Source = winner.Scope.Name
		}
		rows = append(rows, row)
	}
	return rows, nil
}
