package core

import (
	"context"
	"time"

	"github.com/example/summarist/internal/db"
	"github.com/example/summarist/internal/models"
)

type libraryService struct {
	repo db.LibraryRepository
	now  func() time.Time
}

func NewLibraryService(repo db.LibraryRepository) LibraryService {
	return &libraryService{repo: repo, now: time.Now}
}

func (s *libraryService) AddToLibrary(ctx context.Context, uid string, book models.Book) (*models.LibraryEntry, error) {
	if book.ID == "" {
		return nil, &ValidationError{Message: "book id is required", Fields: []string{"book.id"}}
	}
	now := s.now().UTC()
	entry := &models.LibraryEntry{Book: book, AddedAt: &now}
	if err := s.repo.Save(ctx, uid, db.ShelfSaved, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *libraryService) MarkFinished(ctx context.Context, uid string, book models.Book) (*models.LibraryEntry, error) {
	if book.ID == "" {
		return nil, &ValidationError{Message: "book id is required", Fields: []string{"book.id"}}
	}
	now := s.now().UTC()
	entry := &models.LibraryEntry{Book: book, FinishedAt: &now}
	if err := s.repo.Save(ctx, uid, db.ShelfFinished, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *libraryService) RemoveFromLibrary(ctx context.Context, uid, bookID string) error {
	if bookID == "" {
		return &ValidationError{Message: "book id is required", Fields: []string{"bookId"}}
	}
	return s.repo.Remove(ctx, uid, db.ShelfSaved, bookID)
}

func (s *libraryService) List(ctx context.Context, uid string, shelf db.Shelf) ([]*models.LibraryEntry, error) {
	if !shelf.Valid() {
		return nil, &ValidationError{Message: "unknown shelf", Fields: []string{"shelf"}}
	}
	return s.repo.List(ctx, uid, shelf)
}
