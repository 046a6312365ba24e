package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iti-open-source/oceanlibrary-api/internal/cache"
	"github.com/iti-open-source/oceanlibrary-api/internal/dto"
	"github.com/iti-open-source/oceanlibrary-api/internal/repository"
)

// CatalogService serves the public book listing through the catalog cache.
// This is the cached read that checkout and admin order mutations
// invalidate, otherwise stale stock numbers would be served indefinitely.
type CatalogService interface {
	ListBooks(ctx context.Context, page, limit int) (*dto.BookListResponse, error)
}

type catalogServiceImpl struct {
	bookRepo     repository.BookRepository
	catalogCache cache.CatalogCache
}

func NewCatalogService(bookRepo repository.BookRepository, catalogCache cache.CatalogCache) CatalogService {
	return &catalogServiceImpl{
		bookRepo:     bookRepo,
		catalogCache: catalogCache,
	}
}

func (s *catalogServiceImpl) ListBooks(ctx context.Context, page, limit int) (*dto.BookListResponse, error) {
	page, limit = normalizePage(page, limit)
	key := fmt.Sprintf("books:p%d:l%d", page, limit)

	if payload, ok := s.catalogCache.Get(ctx, key); ok {
		var resp dto.BookListResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return &resp, nil
		}
		// corrupt cache entry; fall through to the database
	}

	books, total, err := s.bookRepo.List(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	resp := &dto.BookListResponse{
		Books:       make([]dto.BookView, len(books)),
		CurrentPage: page,
		TotalPages:  totalPages(total, limit),
		TotalBooks:  total,
	}
	for i, book := range books {
		resp.Books[i] = dto.BookView{
			BookID:      book.ID,
			Title:       book.Title,
			Price:       book.Price,
			Stock:       book.Stock,
			Image:       book.Image,
			RatingAvg:   book.RatingAvg,
			RatingCount: book.RatingCount,
		}
	}

	if payload, err := json.Marshal(resp); err == nil {
		s.catalogCache.Set(ctx, key, payload)
	}

	return resp, nil
}
