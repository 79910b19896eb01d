package app

import (
	"context"
	"fmt"
	"strings"

	"llmontreal/internal/api"
	"llmontreal/internal/model"
	"llmontreal/internal/pkg/logger"
)

const DefaultPageSize = 10

type DocumentBackend interface {
	ListDocuments(ctx context.Context, opts api.ListOptions) (*model.Page[model.Document], error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
}

type ListDocumentsInput struct {
	Page int
	Size int
	// Status accepts the backend values or their English names; empty lists
	// every status.
	Status string
	Sort   string
}

type DocumentService struct {
	backend DocumentBackend
	search  *SearchService
}

func NewDocumentService(backend DocumentBackend, search *SearchService) *DocumentService {
	if search == nil {
		search = NewSearchService()
	}
	return &DocumentService{backend: backend, search: search}
}

func (s *DocumentService) Search() *SearchService {
	return s.search
}

// List returns one page of documents narrowed by the current search term.
// Backend failures degrade to an empty page; only bad input is an error.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*model.Page[model.Document], error) {
	if input.Page < 0 {
		return nil, ErrInvalidInput
	}
	size := input.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	opts := api.ListOptions{Page: input.Page, Size: size, Sort: input.Sort}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, ok := model.ParseDocumentStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
		}
		opts.Status = status
	}

	page, err := s.backend.ListDocuments(ctx, opts)
	if err != nil {
		logger.Warnf("list documents failed, showing empty page: %v", err)
		empty := model.EmptyPage[model.Document](input.Page, size)
		return &empty, nil
	}
	return filterByTerm(page, s.search.Term()), nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrDocumentIDMissing
	}
	doc, err := s.backend.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return doc, nil
}

func filterByTerm(page *model.Page[model.Document], term string) *model.Page[model.Document] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return page
	}
	kept := make([]model.Document, 0, len(page.Content))
	for _, doc := range page.Content {
		if strings.Contains(strings.ToLower(doc.FileName), term) {
			kept = append(kept, doc)
		}
	}
	filtered := *page
	filtered.Content = kept
	filtered.NumberOfElements = len(kept)
	filtered.Empty = len(kept) == 0
	return &filtered
}

// SearchService holds the document search term shared between the search
// box and the listing.
type SearchService struct {
	term *Observable[string]
}

func NewSearchService() *SearchService {
	return &SearchService{term: NewObservable("")}
}

func (s *SearchService) SetTerm(term string) {
	s.term.Set(term)
}

func (s *SearchService) Term() string {
	return s.term.Get()
}

func (s *SearchService) Subscribe(fn func(string)) (unsubscribe func()) {
	return s.term.Subscribe(fn)
}
