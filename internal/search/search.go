// Package search provides full-text search over the unmatched dish log for
// catalog curation.
package search

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/normalize"
)

// Index wraps a Bleve index over unmatched records.
//
// Thread safety: all public methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger *logger.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	// Path is the index directory. Empty means an in-memory index, used in
	// development and tests.
	Path   string
	Logger *logger.Logger
}

// document is the indexed shape of an unmatched record.
type document struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	LoggedAt    string `json:"logged_at"`
}

// Hit is one search result.
type Hit struct {
	ID    string
	Score float64
}

// New creates or opens a search index.
func New(opts Options) (*Index, error) {
	var index bleve.Index
	var err error

	if opts.Path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{index: index, logger: opts.Logger}, nil
	}

	if _, statErr := os.Stat(opts.Path); statErr == nil {
		index, err = bleve.Open(opts.Path)
		if err == nil {
			return &Index{index: index, logger: opts.Logger}, nil
		}
		opts.Logger.WithError(err).Warn("failed to open existing search index, recreating",
			"path", opts.Path,
		)
		if removeErr := os.RemoveAll(opts.Path); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
	}

	index, err = bleve.New(opts.Path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: index, logger: opts.Logger}, nil
}

// buildIndexMapping creates the Bleve mapping: stemmed full-text on title
// and description, exact keyword matching on category.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = en.AnalyzerName
	titleMapping.Store = true
	docMapping.AddFieldMappingsAt("title", titleMapping)

	descMapping := bleve.NewTextFieldMapping()
	descMapping.Analyzer = en.AnalyzerName
	descMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descMapping)

	categoryMapping := bleve.NewTextFieldMapping()
	categoryMapping.Analyzer = keyword.Name
	categoryMapping.Store = true
	docMapping.AddFieldMappingsAt("category", categoryMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// IndexUnmatched adds or updates one record in the index.
func (i *Index) IndexUnmatched(rec domain.UnmatchedRecord) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.index.Index(rec.ID, document{
		Title:       rec.Title,
		Description: rec.Description,
		Category:    normalize.Category(rec.Title),
		LoggedAt:    rec.LoggedAt.String(),
	})
}

// DeleteUnmatched removes a record from the index.
func (i *Index) DeleteUnmatched(recID string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(recID)
}

// Search runs a fuzzy-tolerant query over titles and descriptions,
// optionally filtered to one category. Returns record IDs by relevance.
func (i *Index) Search(queryText, category string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 25
	}

	var q query.Query
	if queryText == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		match := bleve.NewMatchQuery(queryText)
		match.SetFuzziness(1)
		q = match
	}

	if category != "" {
		categoryQuery := bleve.NewTermQuery(category)
		categoryQuery.SetField("category")
		q = bleve.NewConjunctionQuery(q, categoryQuery)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	result, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
