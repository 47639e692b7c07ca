package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

// maxCellWidth truncates long values in table output.
const maxCellWidth = 40

// outputResult writes the result in the specified format.
func outputResult(w io.Writer, result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	default:
		return outputTable(w, result)
	}
}

func outputJSON(w io.Writer, result interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(w io.Writer, result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputTable(out io.Writer, result interface{}) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case *entries.ListResult:
		return outputListTable(w, r)
	case types.Entry:
		return outputEntryTable(w, r)
	case *entries.UpdateResult:
		fmt.Fprintf(w, "UPDATED:\t%s\n\n", strings.Join(r.ChangedFields, ", "))
		return outputEntryTable(w, r.Entry)
	case *entries.DeleteResult:
		fmt.Fprintf(w, "DELETED:\t%s/%s\n", r.Resource, r.ID)
		return nil
	case HealthResult:
		return outputHealthTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputListTable(w *tabwriter.Writer, r *entries.ListResult) error {
	fmt.Fprintf(w, "RESOURCE\t%s\n", r.Resource)
	fmt.Fprintf(w, "TOTAL\t%d\n", r.Count)
	fmt.Fprintf(w, "PAGE\t%d/%d\n\n", r.CurrentPage, r.TotalPages)

	if !r.Aggregated {
		return outputRows(w, r.Results, true)
	}

	var rows []types.Entry
	if err := types.DecodeJSON(r.Aggregations, &rows); err != nil {
		// Non-tabular aggregation payloads are printed as-is.
		fmt.Fprintf(w, "AGGREGATIONS\t%s\n", string(r.Aggregations))
	} else {
		fmt.Fprintln(w, "AGGREGATIONS:")
		if err := outputRows(w, rows, false); err != nil {
			return err
		}
	}
	if len(r.Results) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nENTRIES:")
	return outputRows(w, r.Results, true)
}

// outputRows prints rows as columns. With idFirst the entry id leads and
// system timestamps are left out.
func outputRows(w *tabwriter.Writer, rows []types.Entry, idFirst bool) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(none)")
		return nil
	}
	cols := columns(rows, idFirst)
	header := make([]string, 0, len(cols)+1)
	if idFirst {
		header = append(header, "ID")
	}
	for _, c := range cols {
		header = append(header, strings.ToUpper(c))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range rows {
		cells := make([]string, 0, len(header))
		if idFirst {
			cells = append(cells, row.ID())
		}
		for _, c := range cols {
			cells = append(cells, formatCell(row[c]))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return nil
}

func outputEntryTable(w *tabwriter.Writer, e types.Entry) error {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "FIELD\tVALUE")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, formatValue(e[k]))
	}
	return nil
}

func outputHealthTable(w *tabwriter.Writer, r HealthResult) error {
	status := "OK"
	if !r.Reachable {
		status = "UNREACHABLE"
	}
	fmt.Fprintf(w, "API:\t%s\n", r.APIURL)
	fmt.Fprintf(w, "STATUS:\t%s\n", status)
	fmt.Fprintf(w, "AUTHENTICATED:\t%t\n", r.Authenticated)
	if r.Error != "" {
		fmt.Fprintf(w, "ERROR:\t%s\n", r.Error)
	}
	return nil
}

// columns returns the sorted union of field names across rows.
func columns(rows []types.Entry, skipSystem bool) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if seen[k] {
				continue
			}
			seen[k] = true
			if skipSystem && isSystemField(k) {
				continue
			}
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

func isSystemField(name string) bool {
	switch name {
	case types.FieldObjectID, "id", types.FieldDateCreated, types.FieldDateUpdated:
		return true
	default:
		return false
	}
}

func formatCell(v interface{}) string {
	s := formatValue(v)
	if len(s) > maxCellWidth {
		return s[:maxCellWidth-3] + "..."
	}
	return s
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
