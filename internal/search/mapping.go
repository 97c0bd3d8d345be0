package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for article documents.
// Text fields arrive already folded to ASCII; the Portuguese analyzer
// adds stop words and light stemming on top.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = pt.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = pt.AnalyzerName
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	// Original title, returned with hits.
	displayField := bleve.NewTextFieldMapping()
	displayField.Index = false
	displayField.Store = true
	docMapping.AddFieldMappingsAt("display", displayField)

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = pt.AnalyzerName
	bodyField.Store = false
	docMapping.AddFieldMappingsAt("body", bodyField)

	for _, name := range []string{"type", "tags", "categories"} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		kw.Store = name == "type"
		docMapping.AddFieldMappingsAt(name, kw)
	}

	publishedField := bleve.NewNumericFieldMapping()
	publishedField.Store = true
	docMapping.AddFieldMappingsAt("published_at", publishedField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
