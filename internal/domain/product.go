package domain

import "time"

// ProductStatus tracks the lifecycle of a listing.
// Products are never hard-deleted; removal is a status transition.
type ProductStatus string

const (
	ProductListed  ProductStatus = "listed"
	ProductSold    ProductStatus = "sold"
	ProductRemoved ProductStatus = "removed"
)

// Product is a marketplace listing.
type Product struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	ImageRef    string        `json:"imageRef"`
	SellerID    int64         `json:"sellerId"`
	SellerName  string        `json:"sellerName"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	Views       int64         `json:"views"`
}
