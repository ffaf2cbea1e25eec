package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	schemaDesc     string
	schemaPage     int
	schemaPageSize int
	describeOut    string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage schemas",
	Long:  `Create, drop, list and inspect virtual table schemas.`,
}

var schemaAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		var desc *string
		if cmd.Flags().Changed("desc") {
			desc = &schemaDesc
		}
		s, err := sess.eng.AddSchema(cmd.Context(), args[0], desc)
		if err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Created schema %s (id %d)", s.Name, s.ID)
		return nil
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Soft-delete a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		s, err := sess.eng.DropSchema(cmd.Context(), id)
		if err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Dropped schema %s (id %d)", s.Name, s.ID)
		return nil
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		items, info, err := sess.eng.ListSchemas(cmd.Context(), schemaPage, schemaPageSize)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(items))
		for _, s := range items {
			desc := ""
			if s.Description != nil {
				desc = *s.Description
			}
			rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, desc})
		}
		out := cmd.OutOrStdout()
		renderTable(out, []string{"ID", "NAME", "DESCRIPTION"}, rows)
		fmt.Fprintf(out, "page %d of %d (%d schemas)\n", info.Page, info.Pages, info.Total)
		return nil
	},
}

var schemaFieldsCmd = &cobra.Command{
	Use:   "fields <name>",
	Short: "List the fields of a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		fields, err := sess.eng.GetFields(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(fields))
		for _, f := range fields {
			ref := ""
			if f.RefID != nil {
				ref = strconv.FormatInt(*f.RefID, 10)
			}
			rows = append(rows, []string{strconv.FormatInt(f.ID, 10), f.Name, f.Meta, ref})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "NAME", "META", "REF"}, rows)
		return nil
	},
}

var schemaUsedCmd = &cobra.Command{
	Use:   "used <id>",
	Short: "Report whether a schema has entities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		used, err := sess.eng.IsSchemaUsed(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), yesNo(used))
		return nil
	},
}

var schemaDescribeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Print a schema as a YAML definition",
	Long: `Print the schema and its fields in the definition format read by
"vtable apply". Use --output to write it to a file instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()

		def, err := sess.eng.DescribeSchema(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if describeOut != "" {
			if err := def.WriteYAML(describeOut); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", describeOut)
			return nil
		}
		data, err := def.ToYAML()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid schema id %q", s)
	}
	return id, nil
}

func init() {
	schemaAddCmd.Flags().StringVar(&schemaDesc, "desc", "", "schema description")
	schemaListCmd.Flags().IntVar(&schemaPage, "page", 1, "page number, starting at 1")
	schemaListCmd.Flags().IntVar(&schemaPageSize, "size", 20, "schemas per page")
	schemaDescribeCmd.Flags().StringVarP(&describeOut, "output", "o", "", "write the definition to a file")

	schemaCmd.AddCommand(schemaAddCmd, schemaDropCmd, schemaListCmd, schemaFieldsCmd, schemaUsedCmd, schemaDescribeCmd)
	rootCmd.AddCommand(schemaCmd)
}
