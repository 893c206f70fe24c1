// Package search maintains the Bleve-based title search index for videos.
package search

import (
	"context"
	"strings"
	"sync"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Search is the Bleve-based search index.
type Search struct {
	mu sync.RWMutex
	// index is the underlying bleve index, swapped wholesale on rebuild.
	index bleve.Index
}

// Document is the document we store in Bleve per video.
type Document struct {
	// Video ID
	ID    string `json:"id"`
	Title string `json:"title"`
	// TitleExact is a helper field to make exact title match more accurate
	TitleExact  string `json:"title_exact"`
	Description string `json:"description"`
}

// New creates a new empty in-memory index.
func New() (*Search, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Search{index: idx}, nil
}

// buildIndexMapping builds the Bleve index field mapping configuration.
func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	// text mapping for title and description
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"
	textFieldMapping.Store = false
	textFieldMapping.Index = true

	// keyword mapping for exact matches like IDs
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc.AddFieldMappingsAt("id", keyword)
	doc.AddFieldMappingsAt("title", textFieldMapping)
	doc.AddFieldMappingsAt("title_exact", keyword)
	doc.AddFieldMappingsAt("description", textFieldMapping)

	m.DefaultMapping = doc
	return m
}

// Rebuild replaces the index contents with the given documents. The video
// inventory is small and upload-driven, so a full rebuild after every
// mutation is cheaper than tracking deltas.
func (b *Search) Rebuild(ctx context.Context, docs []Document) error {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return err
	}
	batch := idx.NewBatch()
	for _, d := range docs {
		d.TitleExact = strings.ToLower(strings.TrimSpace(d.Title))
		if err := batch.Index(d.ID, d); err != nil {
			return err
		}
		if batch.Size() > 1000 {
			if err := idx.Batch(batch); err != nil {
				return err
			}
			batch = idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			return err
		}
	}

	b.mu.Lock()
	old := b.index
	b.index = idx
	b.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Search runs a flexible fuzzy search and returns matching video IDs,
// best match first.
//
// - searchTerm is the raw user input.
// - size is maximum number of results to return.
func (b *Search) Search(ctx context.Context, searchTerm string, size int) ([]string, error) {
	searchTerm = strings.ToLower(strings.TrimSpace(searchTerm))
	if searchTerm == "" {
		return nil, nil
	}

	// Weights for boosting certain query types and fields.
	const (
		boostTitleExact       = 50.0 // strongest: exact match on title_exact field
		boostTitlePhrase      = 12.0 // very strong: exact phrase in title
		boostTitlePrefix      = 6.0  // strong: prefix on whole query against title
		boostTitleTokenPrefix = 5.0  // strong: prefix on first token against title
		boostTitleField       = 3.0  // fuzzy/prefix on title tokens
		boostOtherFields      = 1.0  // default for other fields
	)

	boolQuery := bleve.NewBooleanQuery()

	// Exact-match on title_exact bubbles exact titles to the top.
	termExact := bleve.NewTermQuery(searchTerm)
	termExact.SetField("title_exact")
	termExact.SetBoost(boostTitleExact)
	boolQuery.AddShould(termExact)

	// Exact phrase in title.
	matchPhrase := bleve.NewMatchPhraseQuery(searchTerm)
	matchPhrase.SetField("title")
	matchPhrase.SetBoost(boostTitlePhrase)
	boolQuery.AddShould(matchPhrase)

	// Prefix on the full query: "big bu" finds "Big Buck Bunny".
	prefixFull := bleve.NewPrefixQuery(searchTerm)
	prefixFull.SetField("title")
	prefixFull.SetBoost(boostTitlePrefix)
	boolQuery.AddShould(prefixFull)

	tokens := strings.Fields(searchTerm)
	if len(tokens) > 0 {
		prefixFirst := bleve.NewPrefixQuery(tokens[0])
		prefixFirst.SetField("title")
		prefixFirst.SetBoost(boostTitleTokenPrefix)
		boolQuery.AddShould(prefixFirst)
	}

	// Token-wise fuzzy + prefix queries across fields.
	for _, tok := range tokens {
		fuzz := 1
		if len(tok) >= 6 {
			fuzz = 2
		}

		for _, f := range []string{"title", "description"} {
			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzz)
			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			if f == "title" {
				fq.SetBoost(boostTitleField)
				pq.SetBoost(boostTitleField)
			} else {
				fq.SetBoost(boostOtherFields)
				pq.SetBoost(boostOtherFields)
			}
			boolQuery.AddShould(fq)
			boolQuery.AddShould(pq)
		}
	}

	req := bleve.NewSearchRequestOptions(boolQuery, size, 0, false)

	b.mu.RLock()
	idx := b.index
	b.mu.RUnlock()

	result, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
