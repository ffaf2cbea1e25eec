package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtable/vtable/internal/schema"
)

var applyFile string

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a YAML schema definition",
	Long: `Create the schema named in the definition if it does not exist, then add
each missing field in order. Existing fields are left as they are. Apply stops
at the first field that cannot be added; fields added before it are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := schema.LoadYAML(applyFile)
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		res, err := sess.eng.ApplyDefinition(cmd.Context(), def)
		if res != nil {
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
		}
		return err
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "definition file")
	_ = applyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(applyCmd)
}
