package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/dbdesc/internal/cli/ui"
)

// errOutOfSync is returned by status --check when descriptions differ
var errOutOfSync = errors.New("catalog descriptions are out of sync")

// NewStatusCommand creates the status command
func NewStatusCommand(g *globalFlags) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare declared descriptions with the catalog",
		Long: `Read the stored description of every entry declared in the manifest and show
whether it matches. The catalog is only read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()

			s, err := openSession(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.coordinator(true).Inspect(ctx, s.source)
			if err != nil {
				return err
			}

			table := ui.NewTable(out, []string{"Target", "State", "Stored"}, &ui.TableOptions{
				NoColor:  g.noColor,
				MaxWidth: 60,
			})
			inSync := 0
			for _, e := range entries {
				state := "missing"
				switch {
				case e.InSync():
					state = "in sync"
					inSync++
				case e.Exists:
					state = "differs"
				}
				table.AddRow(target(e.Key), state, e.Stored)
			}
			table.Render()

			fmt.Fprintf(out, "\n%d of %d descriptions in sync\n", inSync, len(entries))
			if check && inSync < len(entries) {
				return errOutOfSync
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Exit with an error when any description is missing or differs")

	return cmd
}
