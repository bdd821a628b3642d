package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractionSchema_CriticalFields(t *testing.T) {
	schema := ExtractionSchema{
		Fields: []SchemaField{
			{Name: "lc_number", Critical: true},
			{Name: "applicant"},
			{Name: "amount", Critical: true},
		},
	}

	assert.Equal(t, []string{"lc_number", "amount"}, schema.CriticalFields())
	assert.Equal(t, []string{"lc_number", "applicant", "amount"}, schema.FieldNames())
}

func TestExtractionSchema_ResolveDefaults(t *testing.T) {
	schema := ExtractionSchema{
		Fields: []SchemaField{
			{Name: "lc_number", Critical: true},
			{Name: "incoterms", DefaultValue: "CIF"},
			{Name: "applicant"},
		},
	}

	resolved := schema.ResolveDefaults(map[string]ExtractedField{
		"lc_number": {Value: "LC-2026-001", Confidence: 0.99, Status: FieldStatusTrusted},
		"incoterms": {Value: "FOB", Confidence: 0.9, Status: FieldStatusTrusted},
	})

	// Present fields are untouched, even when a default exists.
	assert.Equal(t, "LC-2026-001", resolved["lc_number"].Value)
	assert.Equal(t, "FOB", resolved["incoterms"].Value)
	assert.Equal(t, FieldStatusTrusted, resolved["incoterms"].Status)

	// Omitted fields materialize with their default and status missing.
	assert.Equal(t, "", resolved["applicant"].Value)
	assert.Equal(t, FieldStatusMissing, resolved["applicant"].Status)
}

func TestExtractionSchema_ResolveDefaultsKeepsUnknownFields(t *testing.T) {
	schema := ExtractionSchema{Fields: []SchemaField{{Name: "lc_number"}}}

	resolved := schema.ResolveDefaults(map[string]ExtractedField{
		"freight_forwarder": {Value: "Oceanic Logistics", Status: FieldStatusReview},
	})

	// Fields outside the schema pass through; the pipeline may extract more
	// than the schema describes.
	assert.Contains(t, resolved, "freight_forwarder")
	assert.Contains(t, resolved, "lc_number")
}

func TestDefaultLCSchema(t *testing.T) {
	assert.Equal(t, "lc-v1", DefaultLCSchema.Version)
	assert.Equal(t,
		[]string{"lc_number", "beneficiary", "amount", "currency", "expiry_date"},
		DefaultLCSchema.CriticalFields())
}
