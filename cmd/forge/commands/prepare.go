package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
)

func (c *CLI) newPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Bring the asset graph up to date before a build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deleteConflicting, _ := cmd.Flags().GetBool("delete-conflicting-outputs")
			skipScriptCheck, _ := cmd.Flags().GetBool("skip-script-check")

			prepared, err := c.app.Prepare(cmd.Context(), app.PrepareParams{
				WorkDir:                  c.workDir(cmd),
				DeleteConflictingOutputs: deleteConflicting,
				SkipScriptCheck:          skipScriptCheck,
				Stdin:                    cmd.InOrStdin(),
				Stdout:                   cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			added := prepared.Changes.Count(domain.ChangeAdded)
			removed := prepared.Changes.Count(domain.ChangeRemoved)
			modified := prepared.Changes.Count(domain.ChangeModified)
			if added+removed+modified == 0 {
				cmd.Println("up to date, no changes detected")
				return nil
			}
			cmd.Printf("%d added, %d removed, %d modified\n", added, removed, modified)
			return nil
		},
	}
	cmd.Flags().Bool("delete-conflicting-outputs", false, "Delete declared outputs that already exist on disk without prompting")
	cmd.Flags().Bool("skip-script-check", false, "Trust the cached graph even if the build configuration changed")
	return cmd
}
