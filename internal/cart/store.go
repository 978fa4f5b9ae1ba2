// Package cart はカートの行アイテムと集計値（CartStore）を管理する。
package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/storage"
)

// Candidate はカートに追加する商品。Quantityは無視され、追加のたびに数量が1増える。
type Candidate struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Quantity    int      `json:"quantity,omitempty"`
	Image       string   `json:"image,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
}

// State はカートのスナップショット。TotalとItemCountは常にItemsから計算される。
type State struct {
	Items     []model.CartLineItem `json:"items"`
	Total     float64              `json:"total"`
	ItemCount int                  `json:"item_count"`
}

// Total は価格×数量の合計を返す。
func Total(items []model.CartLineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// ItemCount は数量の合計を返す。
func ItemCount(items []model.CartLineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// TextSanitizer はカタログ由来の表示文字列を無害化する。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Recorder はカート操作の記録先。
type Recorder interface {
	RecordCartMutation(op string)
	SetCartItems(n int)
}

// Option はStoreの任意設定。
type Option func(*Store)

// WithPersistence はカートの永続化先を設定する。未設定の場合カートはメモリ上のみで保持される。
func WithPersistence(a *storage.Adapter) Option {
	return func(s *Store) { s.adapter = a }
}

// WithSanitizer は新規行アイテムの表示文字列に適用するサニタイザを設定する。
func WithSanitizer(t TextSanitizer) Option {
	return func(s *Store) { s.sanitizer = t }
}

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(r Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

// Store はカートの状態コンテナ。保持するのはitemsのみで、集計値は読み出し時に計算する。
type Store struct {
	adapter   *storage.Adapter
	sanitizer TextSanitizer
	logger    *slog.Logger
	metrics   Recorder

	mu        sync.Mutex
	items     []model.CartLineItem
	listeners map[int]func(State)
	nextID    int
}

// NewStore は空のカートを生成する。
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger:    slog.Default(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load は永続化されたカートを復元する。永続化が無効な場合は何もしない。
// 壊れた値は削除して空のカートで始める。数量が1未満・IDが空の行は捨て、重複IDは数量を合算する。
func (s *Store) Load(ctx context.Context) State {
	if s.adapter == nil {
		return s.Snapshot()
	}

	var stored []model.CartLineItem
	found, err := s.adapter.Read(ctx, storage.KeyCart, &stored)
	if err != nil {
		s.logger.Warn("failed to restore cart, starting empty", slog.String("error", err.Error()))
		found = false
	}

	var items []model.CartLineItem
	if found {
		index := make(map[string]int, len(stored))
		for _, it := range stored {
			if it.ID == "" || it.Quantity < 1 {
				continue
			}
			if it.Price < 0 {
				it.Price = 0
			}
			if i, ok := index[it.ID]; ok {
				items[i].Quantity += it.Quantity
				continue
			}
			index[it.ID] = len(items)
			items = append(items, it)
		}
		s.logger.Info("cart restored", slog.Int("lines", len(items)))
	}

	return s.mutate(ctx, "load", func([]model.CartLineItem) []model.CartLineItem {
		return items
	})
}

// AddItem は商品をカートに追加する。同じIDの行があれば数量を1増やし、なければ数量1で末尾に追加する。
// IDが空の候補は無視する。
func (s *Store) AddItem(ctx context.Context, c Candidate) State {
	if c.ID == "" {
		return s.Snapshot()
	}
	return s.mutate(ctx, "add", func(items []model.CartLineItem) []model.CartLineItem {
		for i := range items {
			if items[i].ID == c.ID {
				items[i].Quantity++
				return items
			}
		}
		return append(items, s.newLineItem(c))
	})
}

func (s *Store) newLineItem(c Candidate) model.CartLineItem {
	price := 0.0
	if c.Price != nil && *c.Price > 0 {
		price = *c.Price
	}
	it := model.CartLineItem{
		ID:          c.ID,
		Title:       c.Title,
		Price:       price,
		Quantity:    1,
		Image:       c.Image,
		Category:    c.Category,
		Subcategory: c.Subcategory,
	}
	if s.sanitizer != nil {
		it.Title = s.sanitizer.SanitizeText(it.Title)
		it.Category = s.sanitizer.SanitizeText(it.Category)
		it.Subcategory = s.sanitizer.SanitizeText(it.Subcategory)
	}
	return it
}

// RemoveItem はIDの行を削除する。存在しない場合は何もしない。
func (s *Store) RemoveItem(ctx context.Context, id string) State {
	return s.mutate(ctx, "remove", func(items []model.CartLineItem) []model.CartLineItem {
		return removeByID(items, id)
	})
}

// UpdateQuantity はIDの行の数量をquantityに設定する（加算ではない）。
// quantityが0以下の場合は削除として扱う。存在しない場合は何もしない。
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) State {
	return s.mutate(ctx, "update_quantity", func(items []model.CartLineItem) []model.CartLineItem {
		if quantity <= 0 {
			return removeByID(items, id)
		}
		for i := range items {
			if items[i].ID == id {
				items[i].Quantity = quantity
				break
			}
		}
		return items
	})
}

// ClearCart はカートを空にする。
func (s *Store) ClearCart(ctx context.Context) State {
	return s.mutate(ctx, "clear", func([]model.CartLineItem) []model.CartLineItem {
		return nil
	})
}

// Checkout はカートの中身を取り出して空にする。取り出しと空にする処理は同じロック内で行うため、
// 並行するAddItemの行は戻り値か取り出し後のカートのどちらかに必ず残る。
func (s *Store) Checkout(ctx context.Context) State {
	var taken State
	s.mutate(ctx, "checkout", func(items []model.CartLineItem) []model.CartLineItem {
		taken = snapshot(items)
		return nil
	})
	return taken
}

// Snapshot は現在の状態のディープコピーを返す。
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.items)
}

// Subscribe は状態変更の通知先を登録し、解除関数を返す。
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close は通知先をすべて解除する。
func (s *Store) Close() {
	s.mu.Lock()
	s.listeners = make(map[int]func(State))
	s.mu.Unlock()
}

// mutate はロック内でfnを適用し、永続化した上で適用後の状態を返す。
// 永続化の失敗はログに記録し、操作自体は失敗させない。
func (s *Store) mutate(ctx context.Context, op string, fn func([]model.CartLineItem) []model.CartLineItem) State {
	s.mu.Lock()
	s.items = fn(s.items)
	if s.adapter != nil {
		if err := s.persist(ctx); err != nil {
			s.logger.Warn("failed to persist cart",
				slog.String("op", op),
				slog.String("error", err.Error()),
			)
		}
	}
	st := snapshot(s.items)
	fns := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordCartMutation(op)
		s.metrics.SetCartItems(st.ItemCount)
	}
	for _, l := range fns {
		l(st)
	}
	return st
}

// persist はs.muを保持した状態で呼ぶ。空のカートはエントリごと削除する。
func (s *Store) persist(ctx context.Context) error {
	if len(s.items) == 0 {
		return s.adapter.Remove(ctx, storage.KeyCart)
	}
	return s.adapter.Write(ctx, storage.KeyCart, s.items)
}

func removeByID(items []model.CartLineItem, id string) []model.CartLineItem {
	for i := range items {
		if items[i].ID == id {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

func snapshot(items []model.CartLineItem) State {
	cp := make([]model.CartLineItem, len(items))
	copy(cp, items)
	return State{
		Items:     cp,
		Total:     Total(cp),
		ItemCount: ItemCount(cp),
	}
}
