package validation

import (
	"fmt"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateAuditFormat checks if the audit export format is supported.
func ValidateAuditFormat(format string) error {
	switch format {
	case constants.AuditFormatText, constants.AuditFormatJSON, constants.AuditFormatMarkdown, constants.AuditFormatCSV:
		return nil
	}
	return fmt.Errorf("expected audit format of %s, %s, %s, or %s, got %s",
		constants.AuditFormatText, constants.AuditFormatJSON, constants.AuditFormatMarkdown, constants.AuditFormatCSV, format)
}
