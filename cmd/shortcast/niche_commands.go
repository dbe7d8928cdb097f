package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newNicheCommand(ctx *commandContext) *cobra.Command {
	nicheCmd := &cobra.Command{
		Use:   "niche",
		Short: "Manage content niches",
	}
	nicheCmd.AddCommand(newNicheListCommand(ctx))
	nicheCmd.AddCommand(newNicheAddCommand(ctx))
	return nicheCmd
}

func newNicheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List niches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			niches, err := client.ListNiches()
			if err != nil {
				return err
			}
			if len(niches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No niches defined")
				return nil
			}
			rows := make([][]string, 0, len(niches))
			for _, niche := range niches {
				rows = append(rows, []string{
					strconv.FormatInt(niche.ID, 10),
					niche.Name,
					niche.Description,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Name", "Description"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newNicheAddCommand(ctx *commandContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a niche",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			niche, err := client.CreateNiche(args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created niche %d (%s)\n", niche.ID, niche.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Niche description")
	return cmd
}
