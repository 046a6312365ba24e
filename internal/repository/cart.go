package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iti-open-source/oceanlibrary-api/internal/model"
)

type CartRepository interface {
	// FindByIdentity returns the cart with its items, or
	// gorm.ErrRecordNotFound.
	FindByIdentity(ctx context.Context, identity string) (*model.Cart, error)
	// FindOrCreate lazily creates the cart on first use.
	FindOrCreate(ctx context.Context, identity string) (*model.Cart, error)
	GetItem(ctx context.Context, cartID, bookID uint) (*model.CartItem, error)
	// AddItemQuantity upserts a line, summing quantities when the book is
	// already in the cart. Atomic per cart document, so rapid concurrent
	// adds for the same identity cannot lose updates.
	AddItemQuantity(ctx context.Context, cartID, bookID uint, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, bookID uint, quantity int) (bool, error)
	RemoveItem(ctx context.Context, cartID, bookID uint) (bool, error)
	// DeleteCart removes the cart and its items. Returns false when no cart
	// existed for the identity.
	DeleteCart(ctx context.Context, tx *gorm.DB, identity string) (bool, error)
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

func (r *cartRepoImpl) FindByIdentity(ctx context.Context, identity string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("identity = ?", identity).
		First(&cart).Error

	if err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepoImpl) FindOrCreate(ctx context.Context, identity string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where(model.Cart{Identity: identity}).
		FirstOrCreate(&cart).Error

	if err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepoImpl) GetItem(ctx context.Context, cartID, bookID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		First(&item).Error

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *cartRepoImpl) AddItemQuantity(ctx context.Context, cartID, bookID uint, quantity int) error {
	item := model.CartItem{
		CartID:   cartID,
		BookID:   bookID,
		Quantity: quantity,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
}

func (r *cartRepoImpl) SetItemQuantity(ctx context.Context, cartID, bookID uint, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *cartRepoImpl) RemoveItem(ctx context.Context, cartID, bookID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Delete(&model.CartItem{})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *cartRepoImpl) DeleteCart(ctx context.Context, tx *gorm.DB, identity string) (bool, error) {
	var cart model.Cart
	err := tx.WithContext(ctx).
		Where("identity = ?", identity).
		First(&cart).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}

	if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
		return false, err
	}

	if err := tx.WithContext(ctx).Delete(&cart).Error; err != nil {
		return false, err
	}

	return true, nil
}
