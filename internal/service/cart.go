package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/dto"
	"github.com/iti-open-source/oceanlibrary-api/internal/model"
	"github.com/iti-open-source/oceanlibrary-api/internal/repository"
)

// CartService is the cart store. Stock checks here are advisory, protecting
// the UX from obviously doomed carts; checkout re-validates authoritatively.
type CartService interface {
	GetCart(ctx context.Context, identity string) (*dto.CartResponse, error)
	AddItem(ctx context.Context, identity string, bookID uint, quantity int) error
	SetItemQuantity(ctx context.Context, identity string, bookID uint, quantity int) error
	RemoveItem(ctx context.Context, identity string, bookID uint) error
	Clear(ctx context.Context, identity string) error
	// Merge folds a guest cart into the user cart on login: quantities are
	// summed per book, clipped to current stock, vanished books dropped,
	// and the guest cart destroyed.
	Merge(ctx context.Context, guestIdentity, userIdentity string) error
}

type cartServiceImpl struct {
	db       *gorm.DB
	bookRepo repository.BookRepository
	cartRepo repository.CartRepository
}

func NewCartService(db *gorm.DB, bookRepo repository.BookRepository, cartRepo repository.CartRepository) CartService {
	return &cartServiceImpl{
		db:       db,
		bookRepo: bookRepo,
		cartRepo: cartRepo,
	}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, identity string) (*dto.CartResponse, error) {
	resp := &dto.CartResponse{
		Items: []dto.CartItemView{},
		Total: decimal.Zero,
	}

	cart, err := s.cartRepo.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}

	if len(cart.Items) == 0 {
		return resp, nil
	}

	bookIDs := make([]uint, len(cart.Items))
	for i, item := range cart.Items {
		bookIDs[i] = item.BookID
	}

	books, err := s.bookRepo.FindMany(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("find cart books: %w", err)
	}

	bookByID := make(map[uint]*model.Book, len(books))
	for _, book := range books {
		bookByID[book.ID] = book
	}

	for _, item := range cart.Items {
		book, ok := bookByID[item.BookID]
		if !ok {
			// book was deleted since it was added; drop the line silently
			continue
		}

		subtotal := book.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		resp.Items = append(resp.Items, dto.CartItemView{
			BookID:   book.ID,
			Title:    book.Title,
			Image:    book.Image,
			Price:    book.Price,
			Quantity: item.Quantity,
			Subtotal: subtotal,
			Stock:    book.Stock,
		})
		resp.Total = resp.Total.Add(subtotal)
	}

	return resp, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, identity string, bookID uint, quantity int) error {
	if quantity < 1 {
		return apperr.New(apperr.KindValidation, "quantity must be at least 1")
	}

	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "book %d not found", bookID)
		}
		return fmt.Errorf("find book: %w", err)
	}

	cart, err := s.cartRepo.FindOrCreate(ctx, identity)
	if err != nil {
		return fmt.Errorf("find or create cart: %w", err)
	}

	existing := 0
	item, err := s.cartRepo.GetItem(ctx, cart.ID, bookID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("get cart item: %w", err)
	}
	if item != nil {
		existing = item.Quantity
	}

	if existing+quantity > book.Stock {
		return apperr.New(apperr.KindStockExceeded,
			"cannot add %d of %q: only %d in stock (cart already holds %d)",
			quantity, book.Title, book.Stock, existing)
	}

	if err := s.cartRepo.AddItemQuantity(ctx, cart.ID, bookID, quantity); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	return nil
}

func (s *cartServiceImpl) SetItemQuantity(ctx context.Context, identity string, bookID uint, quantity int) error {
	cart, err := s.cartRepo.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindCartNotFound, "no cart for this identity")
		}
		return fmt.Errorf("find cart: %w", err)
	}

	// zero or negative means remove the line
	if quantity <= 0 {
		removed, err := s.cartRepo.RemoveItem(ctx, cart.ID, bookID)
		if err != nil {
			return fmt.Errorf("remove cart item: %w", err)
		}
		if !removed {
			return apperr.New(apperr.KindItemNotFound, "book %d is not in the cart", bookID)
		}
		return nil
	}

	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "book %d not found", bookID)
		}
		return fmt.Errorf("find book: %w", err)
	}

	if quantity > book.Stock {
		return apperr.New(apperr.KindStockExceeded,
			"cannot set quantity to %d for %q: only %d in stock", quantity, book.Title, book.Stock)
	}

	updated, err := s.cartRepo.SetItemQuantity(ctx, cart.ID, bookID, quantity)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	if !updated {
		return apperr.New(apperr.KindItemNotFound, "book %d is not in the cart", bookID)
	}

	return nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, identity string, bookID uint) error {
	cart, err := s.cartRepo.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindCartNotFound, "no cart for this identity")
		}
		return fmt.Errorf("find cart: %w", err)
	}

	removed, err := s.cartRepo.RemoveItem(ctx, cart.ID, bookID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if !removed {
		return apperr.New(apperr.KindItemNotFound, "book %d is not in the cart", bookID)
	}

	return nil
}

func (s *cartServiceImpl) Clear(ctx context.Context, identity string) error {
	deleted, err := s.cartRepo.DeleteCart(ctx, s.db, identity)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if !deleted {
		return apperr.New(apperr.KindCartNotFound, "no cart for this identity")
	}

	return nil
}

func (s *cartServiceImpl) Merge(ctx context.Context, guestIdentity, userIdentity string) error {
	guestCart, err := s.cartRepo.FindByIdentity(ctx, guestIdentity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// nothing to merge
			return nil
		}
		return fmt.Errorf("find guest cart: %w", err)
	}

	userCart, err := s.cartRepo.FindOrCreate(ctx, userIdentity)
	if err != nil {
		return fmt.Errorf("find or create user cart: %w", err)
	}

	for _, guestItem := range guestCart.Items {
		book, err := s.bookRepo.FindByID(ctx, guestItem.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("find book: %w", err)
		}

		existing := 0
		item, err := s.cartRepo.GetItem(ctx, userCart.ID, guestItem.BookID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("get user cart item: %w", err)
		}
		if item != nil {
			existing = item.Quantity
		}

		merged := existing + guestItem.Quantity
		if merged > book.Stock {
			merged = book.Stock
		}
		if merged <= existing {
			continue
		}

		if err := s.cartRepo.AddItemQuantity(ctx, userCart.ID, guestItem.BookID, merged-existing); err != nil {
			return fmt.Errorf("merge cart item: %w", err)
		}
	}

	if _, err := s.cartRepo.DeleteCart(ctx, s.db, guestIdentity); err != nil {
		return fmt.Errorf("delete guest cart: %w", err)
	}

	return nil
}
