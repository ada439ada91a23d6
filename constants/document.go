package constants

// DocumentType is the file_class reported for a classified document.
type DocumentType string

const (
	BankStatement  DocumentType = "bank_statement"
	DriversLicense DocumentType = "drivers_license"
	Invoice        DocumentType = "invoice"
	Unknown        DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	DriversLicense,
	BankStatement,
	Invoice,
}

// DocumentTypes lists the known classes in registration order, plus "unknown".
func DocumentTypes() []string {
	result := make([]string, 0, len(allDocumentTypes)+1)
	for _, t := range allDocumentTypes {
		result = append(result, string(t))
	}
	return append(result, string(Unknown))
}
