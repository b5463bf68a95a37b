package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/seastarlegal/seastar/internal/editor"
	"github.com/seastarlegal/seastar/internal/markdown"
	"github.com/seastarlegal/seastar/internal/model"
	"github.com/seastarlegal/seastar/internal/ref"
	"github.com/seastarlegal/seastar/internal/store"
	"github.com/spf13/cobra"
)

// checkoutDir holds records checked out for local editing, relative to the
// current directory.
const checkoutDir = ".seastar-checkout"

var defaultSearchFields = []string{"name", "title", "caseNumber", "phone", "email"}

var recordCmd = &cobra.Command{
	Use:     "record",
	Aliases: []string{"r"},
	Short:   "Add, read, change and remove records in any collection",
}

var recordAddCmd = &cobra.Command{
	Use:   "add <collection>",
	Short: "Add a record from --set pairs and/or a JSON object on stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := inputRecord(cmd)
		if err != nil {
			return err
		}
		key, err := st.Add(cmd.Context(), args[0], rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ref.Format(args[0], key))
		return nil
	},
}

var recordGetCmd = &cobra.Command{
	Use:   "get <collection>/<key>",
	Short: "Show a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ref.Parse(args[0])
		if err != nil {
			return err
		}
		rec, err := st.Get(cmd.Context(), r.Collection, r.Key)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, rec)
		}
		keyField, err := st.KeyField(r.Collection)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), markdown.RenderRecord(r.String(), rec, keyField))
		return nil
	},
}

var recordListCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List the records of a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coll := args[0]
		index, _ := cmd.Flags().GetString("index")
		var (
			records []model.Record
			err     error
		)
		if index != "" {
			value, _ := cmd.Flags().GetString("value")
			var v any = value
			if asString, _ := cmd.Flags().GetBool("string"); !asString {
				v = parseValue(value)
			}
			records, err = st.GetByIndex(cmd.Context(), coll, index, v)
		} else {
			records, err = st.GetAll(cmd.Context(), coll)
		}
		if err != nil {
			return err
		}
		return printRecords(cmd, coll, records)
	},
}

var recordUpdateCmd = &cobra.Command{
	Use:   "update <collection>/<key>",
	Short: "Change fields of a record, creating it if absent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ref.Parse(args[0])
		if err != nil {
			return err
		}
		keyField, err := st.KeyField(r.Collection)
		if err != nil {
			return err
		}
		rec, err := st.Get(cmd.Context(), r.Collection, r.Key)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if rec == nil {
			rec = model.Record{}
		}

		changes, err := inputRecord(cmd)
		if err != nil {
			return err
		}
		for k, v := range changes {
			rec[k] = v
		}
		unset, _ := cmd.Flags().GetStringArray("unset")
		for _, k := range unset {
			delete(rec, k)
		}
		rec[keyField] = r.Key

		key, err := st.Update(cmd.Context(), r.Collection, rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", ref.Format(r.Collection, key))
		return nil
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <collection>/<key>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ref.Parse(args[0])
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Delete %s?", r)); err != nil {
			return err
		}
		if err := st.Delete(cmd.Context(), r.Collection, r.Key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", r)
		return nil
	},
}

var recordSearchCmd = &cobra.Command{
	Use:   "search <collection> <term>",
	Short: "Find records whose fields contain a term (case-insensitive)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, term := args[0], args[1]
		fields, _ := cmd.Flags().GetString("fields")
		names := splitList(fields)
		if len(names) == 0 {
			names = defaultSearchFields
		}
		results, err := st.Search(cmd.Context(), coll, term, names...)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, results)
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No records found.")
			return nil
		}
		keyField, err := st.KeyField(coll)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, rec := range results {
			fmt.Fprintln(out, ref.Format(coll, rec[keyField]))
			for _, f := range names {
				if text, ok := rec.Text(f); ok && strings.Contains(strings.ToLower(text), strings.ToLower(term)) {
					fmt.Fprintln(out, "  "+markdown.RenderField(f, store.Snippet(text, term)))
				}
			}
		}
		return nil
	},
}

var recordCheckoutCmd = &cobra.Command{
	Use:   "checkout <collection>/<key>",
	Short: "Copy a record to " + checkoutDir + "/ in the current directory for local editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ref.Parse(args[0])
		if err != nil {
			return err
		}
		path := filepath.Join(checkoutDir, r.FileName())
		if err := writeRecordFile(cmd, r, path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var recordCheckinCmd = &cobra.Command{
	Use:   "checkin <collection>/<key>",
	Short: "Write a locally edited record back to the store and remove the local copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ref.Parse(args[0])
		if err != nil {
			return err
		}
		path := filepath.Join(checkoutDir, r.FileName())
		key, err := saveRecordFile(cmd, r, path)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing local copy: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Checked in %s\n", ref.Format(r.Collection, key))
		return nil
	},
}

var recordEditCmd = &cobra.Command{
	Use:   "edit <collection>/<key>",
	Short: "Edit a record in $EDITOR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ref.Parse(args[0])
		if err != nil {
			return err
		}
		path := filepath.Join(os.TempDir(), "seastar-"+uuid.NewString()+"-"+r.FileName())
		if err := writeRecordFile(cmd, r, path); err != nil {
			return err
		}
		defer os.Remove(path)

		if err := editor.Open(cmd.Context(), path); err != nil {
			return err
		}
		key, err := saveRecordFile(cmd, r, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", ref.Format(r.Collection, key))
		return nil
	},
}

func writeRecordFile(cmd *cobra.Command, r ref.Ref, path string) error {
	rec, err := st.Get(cmd.Context(), r.Collection, r.Key)
	if err != nil {
		return err
	}
	data, err := markdown.MarshalRecord(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// saveRecordFile parses a record file and upserts it. The key always comes
// from the reference, not the file.
func saveRecordFile(cmd *cobra.Command, r ref.Ref, path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rec, err := markdown.ParseRecord(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	keyField, err := st.KeyField(r.Collection)
	if err != nil {
		return nil, err
	}
	rec[keyField] = r.Key
	return st.Update(cmd.Context(), r.Collection, rec)
}

// inputRecord merges a JSON object from stdin with --set pairs; the pairs
// win.
func inputRecord(cmd *cobra.Command) (model.Record, error) {
	rec := model.Record{}
	if in := strings.TrimSpace(readInput(cmd)); in != "" {
		if err := json.Unmarshal([]byte(in), &rec); err != nil {
			return nil, fmt.Errorf("stdin is not a JSON object: %w", err)
		}
	}
	pairs, _ := cmd.Flags().GetStringArray("set")
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want field=value", p)
		}
		rec[k] = parseValue(v)
	}
	return rec, nil
}

// parseValue reads s as a JSON literal when it is one ("12", "true",
// "[1,2]") and as a plain string otherwise.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func printRecords(cmd *cobra.Command, coll string, records []model.Record) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, records)
	}
	keyField, err := st.KeyField(coll)
	if err != nil {
		return err
	}
	cols, _ := cmd.Flags().GetString("columns")
	fmt.Fprintln(cmd.OutOrStdout(), markdown.RenderRecordTable(records, keyField, splitList(cols)))
	return nil
}

func init() {
	recordAddCmd.Flags().StringArray("set", nil, "field=value (repeatable; values parsed as JSON when possible)")

	recordGetCmd.Flags().Bool("json", false, "print the record as JSON")

	recordListCmd.Flags().String("index", "", "look up through a declared index")
	recordListCmd.Flags().String("value", "", "value to match with --index")
	recordListCmd.Flags().Bool("string", false, "match --value as text instead of a JSON literal")
	recordListCmd.Flags().String("columns", "", "comma-separated fields to show")
	recordListCmd.Flags().Bool("json", false, "print records as JSON")

	recordUpdateCmd.Flags().StringArray("set", nil, "field=value (repeatable; values parsed as JSON when possible)")
	recordUpdateCmd.Flags().StringArray("unset", nil, "field to remove (repeatable)")

	recordDeleteCmd.Flags().BoolP("force", "f", false, "skip confirmation")

	recordSearchCmd.Flags().String("fields", "", "comma-separated fields to search (default: "+strings.Join(defaultSearchFields, ",")+")")
	recordSearchCmd.Flags().Bool("json", false, "print matches as JSON")

	recordCmd.AddCommand(recordAddCmd)
	recordCmd.AddCommand(recordGetCmd)
	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordUpdateCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	recordCmd.AddCommand(recordSearchCmd)
	recordCmd.AddCommand(recordCheckoutCmd)
	recordCmd.AddCommand(recordCheckinCmd)
	recordCmd.AddCommand(recordEditCmd)
	rootCmd.AddCommand(recordCmd)
}
