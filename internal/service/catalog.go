package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hanbit-dev/fleamart/internal/domain"
)

const (
	minTitleLen = 2
	maxTitleLen = 50
	minDescLen  = 10
	maxDescLen  = 1000
	minPrice    = 1
	maxPrice    = 100_000_000

	maxImageSize = 5 * 1024 * 1024 // 5MB

	minSearchTermLen = 2
)

// allowedImageTypes is the MIME allowlist for product images; the type is
// sniffed from the bytes, not trusted from the upload.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// RegisterProductInput carries the raw field values for a new listing.
type RegisterProductInput struct {
	Title       string
	Price       int64
	Description string
	Image       []byte
	CSRFToken   string
}

// CatalogStore owns product creation, status transitions, visibility
// filtering, and search over the persisted product collection.
type CatalogStore struct {
	kv        domain.KeyValueStore
	blobs     domain.BlobStore
	sessions  *SessionManager
	validator *Validator
	audit     *AuditLog
	net       simulatedNetwork
	now       func() time.Time
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(kv domain.KeyValueStore, blobs domain.BlobStore, sessions *SessionManager, validator *Validator, audit *AuditLog, latency time.Duration) *CatalogStore {
	return &CatalogStore{
		kv:        kv,
		blobs:     blobs,
		sessions:  sessions,
		validator: validator,
		audit:     audit,
		net:       simulatedNetwork{latency: latency},
		now:       time.Now,
	}
}

// Register validates and stores a new listing attributed to the current
// session. The presented anti-forgery token must match the stored one, and
// the token is rotated after the mutation succeeds.
func (s *CatalogStore) Register(ctx context.Context, in RegisterProductInput) (*domain.Product, error) {
	if err := s.sessions.RequireCSRF(ctx, in.CSRFToken); err != nil {
		return nil, err
	}

	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return nil, fmt.Errorf("%w: title must be 2-50 characters", domain.ErrInvalidInput)
	}
	if in.Price < minPrice || in.Price > maxPrice {
		return nil, fmt.Errorf("%w: price must be between 1 and 100,000,000", domain.ErrInvalidInput)
	}
	desc := strings.TrimSpace(in.Description)
	if n := utf8.RuneCountInString(desc); n < minDescLen || n > maxDescLen {
		return nil, fmt.Errorf("%w: description must be 10-1000 characters", domain.ErrInvalidInput)
	}
	if s.validator.ScanText(ctx, title) || s.validator.ScanText(ctx, desc) {
		return nil, domain.ErrSecurityRejected
	}

	if len(in.Image) == 0 {
		return nil, fmt.Errorf("%w: a product image is required", domain.ErrInvalidInput)
	}
	if len(in.Image) > maxImageSize {
		return nil, fmt.Errorf("%w: image exceeds 5MB limit", domain.ErrInvalidInput)
	}
	if contentType := http.DetectContentType(in.Image); !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("%w: only JPEG, PNG, and GIF images are accepted", domain.ErrInvalidInput)
	}

	if err := s.net.roundTrip(ctx); err != nil {
		return nil, err
	}

	products, err := loadCollection[domain.Product](ctx, s.kv, domain.KeyProducts)
	if err != nil {
		return nil, err
	}

	imageRef := "product-images/" + uuid.NewString()
	if err := s.blobs.Save(ctx, imageRef, in.Image); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	// Registrations are user-paced, so wall-clock milliseconds are unique
	// enough for an id; bump past any same-millisecond neighbor.
	now := s.now()
	id := now.UnixMilli()
	for _, p := range products {
		if p.ID >= id {
			id = p.ID + 1
		}
	}

	product := domain.Product{
		ID:          id,
		Title:       Sanitize(title),
		Description: Sanitize(desc),
		Price:       in.Price,
		ImageRef:    imageRef,
		SellerID:    actor.UserID(),
		SellerName:  actor.Name,
		Status:      domain.ProductListed,
		CreatedAt:   now.UTC(),
	}

	products = append(products, product)
	if err := saveCollection(ctx, s.kv, domain.KeyProducts, products); err != nil {
		// Best-effort cleanup of the stored image.
		s.blobs.Delete(ctx, imageRef)
		return nil, err
	}

	if err := s.audit.Append(ctx, "product_registered", map[string]any{
		"userId":       actor.UserID(),
		"productId":    product.ID,
		"productTitle": title,
	}); err != nil {
		return nil, err
	}

	if err := s.sessions.RotateCSRFToken(ctx); err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns every product the current viewer may see: non-removed
// listings, newest first, with blocked sellers dropped unless the viewer
// is an admin.
func (s *CatalogStore) List(ctx context.Context) ([]domain.Product, error) {
	products, err := loadCollection[domain.Product](ctx, s.kv, domain.KeyProducts)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blockedSet(ctx)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, products, blocked), nil
}

// Search filters the visible catalog to products whose title or description
// contains the term. An empty term is equivalent to List; a term shorter
// than two characters after trimming and sanitizing is rejected.
func (s *CatalogStore) Search(ctx context.Context, term string) ([]domain.Product, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return s.List(ctx)
	}

	needle := Sanitize(strings.ToLower(trimmed))
	if utf8.RuneCountInString(needle) < minSearchTermLen {
		return nil, domain.ErrTermTooShort
	}

	visible, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var matched []domain.Product
	for _, p := range visible {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			matched = append(matched, p)
		}
	}

	// The raw term is recorded on purpose; consumers of the log must treat
	// the payload as non-executable text.
	if err := s.audit.Append(ctx, "product_search", map[string]any{
		"searchTerm":  trimmed,
		"resultCount": len(matched),
	}); err != nil {
		return nil, err
	}
	return matched, nil
}

// View increments the view counter of a product and records the view.
func (s *CatalogStore) View(ctx context.Context, productID int64) (*domain.Product, error) {
	products, err := loadCollection[domain.Product](ctx, s.kv, domain.KeyProducts)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID != productID || products[i].Status == domain.ProductRemoved {
			continue
		}
		products[i].Views++
		if err := saveCollection(ctx, s.kv, domain.KeyProducts, products); err != nil {
			return nil, err
		}
		if err := s.audit.Append(ctx, "product_view", map[string]any{
			"productId":    products[i].ID,
			"productTitle": products[i].Title,
		}); err != nil {
			return nil, err
		}
		return &products[i], nil
	}
	return nil, domain.ErrNotFound
}

// MarkSold transitions a listed product to sold. Only the seller or an
// admin may do this.
func (s *CatalogStore) MarkSold(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.transition(ctx, productID, domain.ProductSold)
}

// Remove soft-deletes a listed product: it is excluded from every view but
// retained in storage. Only the seller or an admin may do this.
func (s *CatalogStore) Remove(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.transition(ctx, productID, domain.ProductRemoved)
}

func (s *CatalogStore) transition(ctx context.Context, productID int64, to domain.ProductStatus) (*domain.Product, error) {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	products, err := loadCollection[domain.Product](ctx, s.kv, domain.KeyProducts)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID != productID {
			continue
		}
		if products[i].SellerID != actor.UserID() && !actor.IsAdmin() {
			return nil, domain.ErrUnauthorized
		}
		if products[i].Status != domain.ProductListed {
			return nil, fmt.Errorf("%w: only listed products can change status", domain.ErrInvalidInput)
		}
		products[i].Status = to
		if err := saveCollection(ctx, s.kv, domain.KeyProducts, products); err != nil {
			return nil, err
		}
		if err := s.audit.Append(ctx, "product_status_changed", map[string]any{
			"userId":    actor.UserID(),
			"productId": productID,
			"status":    string(to),
		}); err != nil {
			return nil, err
		}
		return &products[i], nil
	}
	return nil, domain.ErrNotFound
}

// Image returns the stored image bytes and sniffed content type for a
// listing's image reference.
func (s *CatalogStore) Image(ctx context.Context, imageRef string) ([]byte, string, error) {
	data, err := s.blobs.Get(ctx, imageRef)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

// BlockSeller adds a seller to the blocked set. Admin only; blocked
// sellers' products disappear for non-admin viewers.
func (s *CatalogStore) BlockSeller(ctx context.Context, sellerID int64) error {
	return s.setBlocked(ctx, sellerID, true)
}

// UnblockSeller removes a seller from the blocked set. Admin only.
func (s *CatalogStore) UnblockSeller(ctx context.Context, sellerID int64) error {
	return s.setBlocked(ctx, sellerID, false)
}

func (s *CatalogStore) setBlocked(ctx context.Context, sellerID int64, blocked bool) error {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil || !actor.IsAdmin() {
		return domain.ErrUnauthorized
	}

	ids, err := loadCollection[int64](ctx, s.kv, domain.KeyBlockedUsers)
	if err != nil {
		return err
	}

	action := "seller_unblocked"
	if blocked {
		action = "seller_blocked"
		for _, id := range ids {
			if id == sellerID {
				return nil // already blocked
			}
		}
		ids = append(ids, sellerID)
	} else {
		kept := ids[:0]
		for _, id := range ids {
			if id != sellerID {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	if err := saveCollection(ctx, s.kv, domain.KeyBlockedUsers, ids); err != nil {
		return err
	}
	return s.audit.Append(ctx, action, map[string]any{
		"adminId":  actor.UserID(),
		"sellerId": sellerID,
	})
}

func (s *CatalogStore) blockedSet(ctx context.Context) (map[int64]bool, error) {
	ids, err := loadCollection[int64](ctx, s.kv, domain.KeyBlockedUsers)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// visible applies the visibility rules: removed products are excluded
// unconditionally, blocked sellers' products only for non-admin viewers.
// Ordering is newest first and deterministic across calls.
func (s *CatalogStore) visible(ctx context.Context, products []domain.Product, blocked map[int64]bool) []domain.Product {
	admin := s.sessions.IsAdmin(ctx)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Status == domain.ProductRemoved {
			continue
		}
		if !admin && blocked[p.SellerID] {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
