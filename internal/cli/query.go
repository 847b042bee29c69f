// Read commands: get, count, and find.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// queryFlags holds the where and select flags shared by get and count.
type queryFlags struct {
	where   []string
	whereOp []string
	columns []string
}

func (f *queryFlags) register(cmd *cobra.Command, withSelect bool) {
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, `equality condition "column=value" (repeatable, ANDed)`)
	cmd.Flags().StringArrayVar(&f.whereOp, "where-op", nil, `condition "column op value" with op one of = != > < (repeatable, ANDed)`)
	if withSelect {
		cmd.Flags().StringSliceVarP(&f.columns, "select", "s", nil, "columns to project, in output order")
	}
}

// apply adds the flag conditions and projection to q.
func (f *queryFlags) apply(q types.Query) (types.Query, error) {
	for _, w := range f.where {
		column, value, ok := strings.Cut(w, "=")
		if !ok || column == "" {
			return nil, userError(fmt.Errorf("invalid --where %q: want column=value", w))
		}
		q = q.Where(column, parseValue(value))
	}
	for _, w := range f.whereOp {
		p, err := parseCondition(w)
		if err != nil {
			return nil, err
		}
		q = q.WhereOp(p.Column, p.Operator, p.Value)
	}
	if len(f.columns) > 0 {
		q = q.Select(f.columns...)
	}
	return q, nil
}

// parseCondition parses "column op value". The value is the rest of the
// string after the operator and may contain spaces.
func parseCondition(s string) (types.Predicate, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return types.Predicate{}, userError(fmt.Errorf("invalid --where-op %q: want \"column op value\"", s))
	}
	op := types.Operator(fields[1])
	if !op.Valid() {
		return types.Predicate{}, userError(fmt.Errorf("invalid --where-op %q: %w %q", s, types.ErrInvalidOperator, fields[1]))
	}
	rest := strings.TrimSpace(s)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
	return types.Predicate{Column: fields[0], Operator: op, Value: parseValue(rest)}, nil
}

func newGetCmd(a *app) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "get <entity>",
		Short: "List the records of an entity type matching the conditions",
		Example: `  ledger get User
  ledger get User --where name=Sasha --select id,email
  ledger get User --where-op "id > 1"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(args[0], func(q types.Query) error {
				q, err := f.apply(q)
				if err != nil {
					return err
				}
				entities, err := q.Get()
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), entities)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "count <entity>",
		Short: "Count the records of an entity type matching the conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(args[0], func(q types.Query) error {
				q, err := f.apply(q)
				if err != nil {
					return err
				}
				n, err := q.Count()
				if err != nil {
					return classify(err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <entity> <key>",
		Short: "Print the record with the given primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(args[0], func(q types.Query) error {
				e, err := q.Find(parseValue(args[1]))
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
}

// classify attaches an exit code to an error from the query builder.
func classify(err error) error {
	if errors.Is(err, types.ErrStorageIO) || errors.Is(err, types.ErrStorageFormat) {
		return sysError(err)
	}
	return userError(err)
}
