package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xraph/granary"
)

func newResolveCmd(opts *options) *cobra.Command {
	var req granary.ResolveRequest

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a principal's permission set from a seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Seed == "" {
				return errors.New("resolve requires --seed")
			}
			st, _, err := opts.seededStore(cmd.Context())
			if err != nil {
				return err
			}
			eng, err := granary.NewEngine(granary.WithStore(st))
			if err != nil {
				return err
			}
			set, err := eng.Resolve(opts.tenantContext(cmd.Context()), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), set)
		},
	}

	cmd.Flags().StringVar(&req.PrincipalID, "principal", "", "Principal ID (subject or subject:provider)")
	cmd.Flags().StringVar(&req.Grain, "grain", "", "Grain to resolve")
	cmd.Flags().StringVar(&req.SecurableItem, "securable-item", "", "Restrict to one securable item")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("grain")
	return cmd
}

func newExpandGroupsCmd(opts *options) *cobra.Command {
	var principal string

	cmd := &cobra.Command{
		Use:   "expand-groups",
		Short: "List every group a principal belongs to, directly or through nesting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Seed == "" {
				return errors.New("expand-groups requires --seed")
			}
			st, _, err := opts.seededStore(cmd.Context())
			if err != nil {
				return err
			}
			eng, err := granary.NewEngine(granary.WithStore(st))
			if err != nil {
				return err
			}
			ids, err := eng.ExpandGroups(opts.tenantContext(cmd.Context()), principal)
			if err != nil {
				return err
			}
			out := make([]string, len(ids))
			for i, gid := range ids {
				out[i] = gid.String()
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"principal_id": principal,
				"group_ids":    out,
			})
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal ID")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}
