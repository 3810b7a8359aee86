package shopsync

import (
	"errors"
	"time"
)

// ============================================================================
// Errors
// ============================================================================

var (
	// ErrUnavailable marks a transport-level failure: the backend could not
	// be reached, timed out, or is already known to be down. The Store treats
	// it as a signal to switch to the local mirror, never as a caller error.
	ErrUnavailable = errors.New("api unavailable")

	// ErrNotFound is returned for operations on an id that does not exist,
	// on both the remote and the mirror path.
	ErrNotFound = errors.New("record not found")
)

// APIError represents a domain-level error reported by the backend.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// Is lets errors.Is match backend not-found responses against ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Code == "NOT_FOUND"
}

// IsNotFound reports whether err is a not-found error from either path.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// isTransport reports whether err means the backend is unreachable.
func isTransport(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// alreadyExists reports whether err is the backend rejecting a create
// because the record is already there.
func alreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "CONFLICT", "DUPLICATE", "ALREADY_EXISTS":
		return true
	}
	return false
}

// ============================================================================
// Records
// ============================================================================

// Dimensions holds product dimensions in centimeters.
type Dimensions struct {
	L float64 `json:"l"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Product is the primary record of the dashboard.
//
// Synced is a client-side flag: true when the record's current state has been
// pushed to (or came from) the backend, false when it only exists in the
// local mirror. It travels with the record in the mirror but is never sent
// upstream.
type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SKU           string     `json:"sku,omitempty"`
	Category      string     `json:"category,omitempty"`
	OriginalPrice float64    `json:"originalPrice"`
	SalePrice     float64    `json:"salePrice"`
	Stock         int        `json:"stock"`
	Weight        float64    `json:"weight,omitempty"`
	Dimensions    Dimensions `json:"dimensions"`
	Image         string     `json:"image,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Synced        bool       `json:"synced,omitempty"`
}

// ProductPatch is a partial update. A nil field leaves the stored value
// unchanged; a set field overwrites it. There is no explicit-clear channel —
// to blank a string field, set it to a pointer to "".
type ProductPatch struct {
	Name          *string     `json:"name,omitempty"`
	SKU           *string     `json:"sku,omitempty"`
	Category      *string     `json:"category,omitempty"`
	OriginalPrice *float64    `json:"originalPrice,omitempty"`
	SalePrice     *float64    `json:"salePrice,omitempty"`
	Stock         *int        `json:"stock,omitempty"`
	Weight        *float64    `json:"weight,omitempty"`
	Dimensions    *Dimensions `json:"dimensions,omitempty"`
	Image         *string     `json:"image,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p *ProductPatch) IsZero() bool {
	return p == nil || (p.Name == nil && p.SKU == nil && p.Category == nil &&
		p.OriginalPrice == nil && p.SalePrice == nil && p.Stock == nil &&
		p.Weight == nil && p.Dimensions == nil && p.Image == nil)
}

// Apply merges the patch into prod field by field and refreshes UpdatedAt.
func (p *ProductPatch) Apply(prod *Product) {
	if p == nil {
		return
	}
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.SKU != nil {
		prod.SKU = *p.SKU
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.OriginalPrice != nil {
		prod.OriginalPrice = *p.OriginalPrice
	}
	if p.SalePrice != nil {
		prod.SalePrice = *p.SalePrice
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	if p.Weight != nil {
		prod.Weight = *p.Weight
	}
	if p.Dimensions != nil {
		prod.Dimensions = *p.Dimensions
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	prod.UpdatedAt = time.Now().UTC()
}

// PatchFrom builds a full-overwrite patch from a product, used when a
// reconciliation create is rejected as a duplicate and retried as an update.
func PatchFrom(prod *Product) *ProductPatch {
	return &ProductPatch{
		Name:          &prod.Name,
		SKU:           &prod.SKU,
		Category:      &prod.Category,
		OriginalPrice: &prod.OriginalPrice,
		SalePrice:     &prod.SalePrice,
		Stock:         &prod.Stock,
		Weight:        &prod.Weight,
		Dimensions:    &prod.Dimensions,
		Image:         &prod.Image,
	}
}

// Category is a named grouping for products. Name is unique.
type Category struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Synced    bool      `json:"synced,omitempty"`
}

// ============================================================================
// Auth & upload
// ============================================================================

// User identifies an authenticated dashboard user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// LoginResult is the response of a login call.
type LoginResult struct {
	Success bool      `json:"success"`
	Token   string    `json:"token,omitempty"`
	User    *User     `json:"user,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// SessionResult is the response of a session check.
type SessionResult struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

// UploadResult is the response of an image upload.
type UploadResult struct {
	URL string `json:"url"`
}
