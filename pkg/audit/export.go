package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
)

const exportTimeLayout = time.RFC3339

// ExportText renders the trail as human-readable lines, one per entry.
func (t *Trail) ExportText() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Audit trail %s (created %s, %d entries)\n",
		t.RunID, t.CreatedAt.Format(exportTimeLayout), len(t.Entries))
	for _, entry := range t.Entries {
		fmt.Fprintf(&builder, "%s [%s] %s: %s",
			entry.Timestamp.Format(exportTimeLayout), entry.Level, entry.Category, entry.Message)
		for _, key := range sortedKeys(entry.Data) {
			fmt.Fprintf(&builder, " %s=%s", key, entry.Data[key])
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// ExportJSON renders the trail as indented JSON.
func (t *Trail) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ExportMarkdown renders the trail as a markdown table.
func (t *Trail) ExportMarkdown() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "# Audit trail %s\n\n", t.RunID)
	fmt.Fprintf(&builder, "Created %s, %d entries.\n\n", t.CreatedAt.Format(exportTimeLayout), len(t.Entries))
	builder.WriteString("| Timestamp | Level | Category | Message | Data |\n")
	builder.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, entry := range t.Entries {
		var data []string
		for _, key := range sortedKeys(entry.Data) {
			data = append(data, key+"="+entry.Data[key])
		}
		fmt.Fprintf(&builder, "| %s | %s | %s | %s | %s |\n",
			entry.Timestamp.Format(exportTimeLayout),
			entry.Level,
			escapeMarkdown(entry.Category),
			escapeMarkdown(entry.Message),
			escapeMarkdown(strings.Join(data, ", ")))
	}
	return builder.String()
}

// ExportCSV renders the trail in comma-separated value format.
func (t *Trail) ExportCSV() string {
	var builder strings.Builder
	builder.WriteString(`"timestamp","level","category","message","data"`)
	builder.WriteString("\n")
	for _, entry := range t.Entries {
		var data []string
		for _, key := range sortedKeys(entry.Data) {
			data = append(data, key+"="+entry.Data[key])
		}
		fmt.Fprintf(&builder, `"%s","%s","%s","%s","%s"`,
			entry.Timestamp.Format(exportTimeLayout),
			escapeQuotes(entry.Level),
			escapeQuotes(entry.Category),
			escapeQuotes(entry.Message),
			escapeQuotes(strings.Join(data, ",")))
		builder.WriteString("\n")
	}
	return builder.String()
}

// Export renders the trail in the named format; see the audit format
// constants for valid names.
func (t *Trail) Export(exportFormat string) ([]byte, error) {
	switch exportFormat {
	case constants.AuditFormatText:
		return []byte(t.ExportText()), nil
	case constants.AuditFormatJSON:
		return t.ExportJSON()
	case constants.AuditFormatMarkdown:
		return []byte(t.ExportMarkdown()), nil
	case constants.AuditFormatCSV:
		return []byte(t.ExportCSV()), nil
	default:
		return nil, fmt.Errorf("unknown audit export format %s", exportFormat)
	}
}

// WriteFile exports the trail in the named format to the given path.
func (t *Trail) WriteFile(path, exportFormat string) error {
	data, err := t.Export(exportFormat)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
