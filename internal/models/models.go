package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PassHash      []byte    `json:"-"`
	Role          Role      `json:"role"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	Newsletter    bool      `json:"newsletter"`
	CompanyID     int64     `json:"company_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}

	return u.FirstName + " " + u.LastName
}

type Invite struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Code      string     `json:"invite_code"`
	Email     *string    `json:"email,omitempty"`
	Role      Role       `json:"role"`
	IsUsed    bool       `json:"is_used"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// * Expired сообщает, истек ли срок действия приглашения на момент now.
func (i Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// * Stale сообщает, подлежит ли запись удалению при очистке.
func (t RefreshToken) Stale(now time.Time) bool {
	return t.ExpiresAt.Before(now) || t.Used || t.Revoked
}

type Installation struct {
	CompanyID int64     `json:"company_id"`
	SiteID    string    `json:"site_id"`
	CreatedAt time.Time `json:"created_at"`
}

// * Message описывает письмо подтверждения почты, которое уходит в очередь или напрямую в Brevo.
type Message struct {
	Email       string `json:"to"`
	Name        string `json:"name"`
	CompanyName string `json:"company"`
	Link        string `json:"link"`
	Purpose     string `json:"purpose"`
	TemplateID  int64  `json:"template_id"`
}

const PurposeEmailConfirm = "email_confirm"

type Category struct {
	ID           int64  `json:"id"`
	CompanyID    int64  `json:"company_id"`
	WixID        string `json:"wix_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	VisibleInWix bool   `json:"visible_in_wix"`
}

type ProductImage struct {
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsMainMedia  bool   `json:"is_main_media"`
}

type ProductInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Product struct {
	ID               int64          `json:"id"`
	CompanyID        int64          `json:"company_id"`
	WixID            string         `json:"wix_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	VisibleInWix     bool           `json:"visible_in_wix"`
	Weight           float64        `json:"weight"`
	Price            float64        `json:"price"`
	DiscountedPrice  float64        `json:"discounted_price"`
	DiscountedType   string         `json:"discounted_type"`
	DiscountedAmount float64        `json:"discounted_amount"`
	Images           []ProductImage `json:"images"`
	AdditionalInfo   []ProductInfo  `json:"additional_info_sections"`
	Categories       []Category     `json:"categories"`
	CategoryWixIDs   []string       `json:"-"`
}
