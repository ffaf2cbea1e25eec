package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtable/vtable/internal/meta"
)

var fieldMeta string

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Manage schema fields",
}

var fieldAddCmd = &cobra.Command{
	Use:   "add <schema> <field>",
	Short: "Add a field to a schema",
	Long: `Add a field described by a JSON metadata descriptor, for example:

  vtable field add hosts addr --meta '{"type":"IPAddress","unique":false,"default":"10.0.0.1"}'

If the schema already has entities and the field is not nullable, every
entity is backfilled with the default in one transaction.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := meta.DecodeJSON([]byte(fieldMeta))
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		f, err := sess.eng.AddField(cmd.Context(), args[0], args[1], desc)
		if err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Added field %s to %s (id %d)", f.Name, args[0], f.ID)
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(f.Meta))
		return nil
	},
}

func init() {
	fieldAddCmd.Flags().StringVar(&fieldMeta, "meta", `{"type":"Integer","nullable":true}`, "JSON metadata descriptor")
	fieldCmd.AddCommand(fieldAddCmd)
	rootCmd.AddCommand(fieldCmd)
}
