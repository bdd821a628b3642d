package models

// SchemaField describes one field the extraction pipeline is expected to
// produce for a document type.
type SchemaField struct {
	Name string `json:"name"`

	// Critical marks fields whose absence alone is sufficient to block
	// compliance classification.
	Critical bool `json:"critical"`

	// DefaultValue is applied once at the ingest boundary when the pipeline
	// omitted the field entirely. Defaulted fields carry status "missing".
	DefaultValue string `json:"default_value,omitempty"`
}

// ExtractionSchema is the typed, versioned description of what a complete
// extraction for a document type looks like. Server payloads are resolved
// against it exactly once, at the data-model boundary, instead of scattering
// fallback logic through business rules.
type ExtractionSchema struct {
	Version string        `json:"version"`
	Fields  []SchemaField `json:"fields"`
}

// CriticalFields returns the names of the schema's critical fields, in
// schema order.
func (s *ExtractionSchema) CriticalFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Critical {
			names = append(names, f.Name)
		}
	}
	return names
}

// FieldNames returns all expected field names in schema order.
func (s *ExtractionSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// ResolveDefaults fills in schema fields the extraction pipeline omitted.
// Missing fields get their schema default (empty value unless the schema says
// otherwise) with status "missing". Present fields are left untouched.
func (s *ExtractionSchema) ResolveDefaults(fields map[string]ExtractedField) map[string]ExtractedField {
	resolved := make(map[string]ExtractedField, len(s.Fields))
	for name, f := range fields {
		resolved[name] = f
	}
	for _, sf := range s.Fields {
		if _, ok := resolved[sf.Name]; !ok {
			resolved[sf.Name] = ExtractedField{
				Value:  sf.DefaultValue,
				Status: FieldStatusMissing,
			}
		}
	}
	return resolved
}

// DefaultLCSchema is the extraction schema for letter-of-credit document
// sets. The critical subset mirrors the fields the compliance team treats as
// blocking: without them a session cannot be classified at all.
var DefaultLCSchema = ExtractionSchema{
	Version: "lc-v1",
	Fields: []SchemaField{
		{Name: "lc_number", Critical: true},
		{Name: "beneficiary", Critical: true},
		{Name: "applicant"},
		{Name: "amount", Critical: true},
		{Name: "currency", Critical: true},
		{Name: "issue_date"},
		{Name: "expiry_date", Critical: true},
		{Name: "latest_shipment_date"},
		{Name: "port_of_loading"},
		{Name: "port_of_discharge"},
		{Name: "goods_description"},
		{Name: "incoterms", DefaultValue: "CIF"},
		{Name: "partial_shipments", DefaultValue: "not allowed"},
		{Name: "presentation_period"},
		{Name: "documents_required"},
	},
}
