package services

import (
	"context"
	"time"

	"textilepro/internal/cart"
	"textilepro/internal/repos"
)

// SessionStorage is the cart.Storage of one browser session, backed by the
// client_storage table.
type SessionStorage struct {
	ctx  context.Context
	repo *repos.ClientStorageRepo
	sid  string
}

func NewSessionStorage(ctx context.Context, repo *repos.ClientStorageRepo, sid string) *SessionStorage {
	return &SessionStorage{ctx: ctx, repo: repo, sid: sid}
}

func (s *SessionStorage) Get(key string) (string, bool, error) {
	return s.repo.Get(s.ctx, s.sid, key)
}

func (s *SessionStorage) Set(key, value string) error {
	return s.repo.Set(s.ctx, s.sid, key, value)
}

func (s *SessionStorage) Remove(key string) error {
	return s.repo.Delete(s.ctx, s.sid, key)
}

// CartService hands out the carts of a session. Each call reads the stored
// snapshot again, so concurrent requests of one session follow last write
// wins.
type CartService struct {
	Storage *repos.ClientStorageRepo
	Now     func() time.Time
}

func NewCartService(storage *repos.ClientStorageRepo) *CartService {
	return &CartService{Storage: storage, Now: time.Now}
}

func (s *CartService) Cart(ctx context.Context, sid string) *cart.Cart {
	return cart.NewCart(NewSessionStorage(ctx, s.Storage, sid), nil, s.clock())
}

func (s *CartService) QuoteCart(ctx context.Context, sid string) *cart.QuoteCart {
	return cart.NewQuoteCart(NewSessionStorage(ctx, s.Storage, sid), nil, s.clock())
}

func (s *CartService) clock() cart.Option {
	if s.Now == nil {
		return cart.WithClock(time.Now)
	}
	return cart.WithClock(s.Now)
}
