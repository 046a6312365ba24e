package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iti-open-source/oceanlibrary-api/internal/model"
)

type BookRepository interface {
	FindByID(ctx context.Context, bookID uint) (*model.Book, error)
	// FindByIDTx reads through an open transaction; used when the caller
	// already holds one and must not borrow a second connection.
	FindByIDTx(ctx context.Context, tx *gorm.DB, bookID uint) (*model.Book, error)
	FindMany(ctx context.Context, bookIDs []uint) ([]*model.Book, error)
	List(ctx context.Context, page, limit int) ([]*model.Book, int64, error)
	// DecrementStock atomically takes quantity units off a book's stock,
	// refusing to go negative. Returns false when the guard failed (book
	// missing or not enough stock); the caller decides which it was.
	DecrementStock(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) (bool, error)
}

type bookRepoImpl struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepoImpl{
		db: db,
	}
}

func (r *bookRepoImpl) FindByID(ctx context.Context, bookID uint) (*model.Book, error) {
	var book model.Book
	err := r.db.WithContext(ctx).
		Where("id = ?", bookID).
		First(&book).Error

	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (r *bookRepoImpl) FindByIDTx(ctx context.Context, tx *gorm.DB, bookID uint) (*model.Book, error) {
	var book model.Book
	err := tx.WithContext(ctx).
		Where("id = ?", bookID).
		First(&book).Error

	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (r *bookRepoImpl) FindMany(ctx context.Context, bookIDs []uint) ([]*model.Book, error) {
	var books []*model.Book
	err := r.db.WithContext(ctx).
		Where("id IN ?", bookIDs).
		Find(&books).
		Error

	if err != nil {
		return nil, err
	}

	return books, nil
}

func (r *bookRepoImpl) List(ctx context.Context, page, limit int) ([]*model.Book, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []*model.Book
	err := r.db.WithContext(ctx).
		Order("id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&books).Error

	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (r *bookRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Book{}).
		Where("id = ? AND stock >= ?", bookID, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
