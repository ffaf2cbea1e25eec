package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vtable/vtable/internal/engine"
	"github.com/vtable/vtable/internal/export"
	"github.com/vtable/vtable/internal/typemap"
)

var (
	exportCollection string
	exportTypeMap    string
)

var exportCmd = &cobra.Command{
	Use:   "export <schema>",
	Short: "Export a schema's entities to MongoDB",
	Long: `Write every live entity of a schema to a MongoDB collection, one document
per entity. The collection is dropped first. Unique fields get a unique index.
Value types map to BSON types through the type map (--type-map to override).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tm := typemap.Default()
		if exportTypeMap != "" {
			var err error
			if tm, err = typemap.LoadYAML(exportTypeMap); err != nil {
				return err
			}
		}

		sess, err := openSession(ctx, engine.WithTypeMap(tm))
		if err != nil {
			return err
		}
		defer sess.close()

		if sess.cfg.Export.ConnectionString == "" {
			return fmt.Errorf("export.connection_string is not configured")
		}
		w, err := export.NewMongoWriter(ctx, sess.cfg.Export.ConnectionString, sess.cfg.Export.Database)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = w.Close(closeCtx)
		}()

		collection := exportCollection
		if collection == "" {
			collection = args[0]
		}
		res, err := sess.eng.ExportSchema(ctx, w, args[0], collection)
		if err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Exported %d documents to %s.%s", res.Documents, sess.cfg.Export.Database, res.Collection)
		for _, ix := range res.Indexes {
			fmt.Fprintf(cmd.OutOrStdout(), "  unique index on %s\n", ix)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCollection, "collection", "", "target collection (default: schema name)")
	exportCmd.Flags().StringVar(&exportTypeMap, "type-map", "", "YAML file overriding the BSON type map")
	rootCmd.AddCommand(exportCmd)
}
