// Write commands: insert, update, and delete.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <entity> <json>",
		Short: "Insert a record, assigning a primary key if it has none",
		Example: `  ledger insert User '{"name":"Sasha","email":"sasha@gmail.com"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			return a.withQuery(args[0], func(q types.Query) error {
				e, err := q.Insert(rec)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "update <entity> <json>",
		Short: "Replace the record sharing the primary key, or append it",
		Long: "Update saves the record under its primary key. With --merge the given\n" +
			"columns are merged into the stored record instead of replacing it.",
		Example: `  ledger update User '{"id":2,"name":"Somebody"}' --merge`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			return a.withEntity(args[0], func(q types.Query, et *types.EntityType) error {
				if merge {
					rec, err = mergeStored(q, et.PrimaryKey, rec)
					if err != nil {
						return err
					}
				}
				e, err := q.Update(rec)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().BoolVarP(&merge, "merge", "m", false, "merge columns into the stored record")
	return cmd
}

// mergeStored returns the stored record with rec's columns merged over it.
func mergeStored(q types.Query, pk string, rec types.Record) (types.Record, error) {
	key, ok := rec.Get(pk)
	if !ok || key == nil {
		return nil, userError(types.ErrMissingPrimaryKey)
	}
	found, err := q.Find(key)
	if err != nil {
		return nil, classify(err)
	}
	return found.Attributes().Merge(rec), nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <key>",
		Short: "Remove the record with the given primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(args[0], func(q types.Query) error {
				key := parseValue(args[1])
				found, err := q.Find(key)
				if err != nil {
					return classify(err)
				}
				if err := q.Delete(found.Attributes()); err != nil {
					return classify(err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%v\n", args[0], key)
				return err
			})
		},
	}
}
