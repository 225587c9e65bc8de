package domain

import (
	"time"
)

type Lot struct {
	ID           int            `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Image        string         `json:"image"`
	LotNumber    string         `json:"lot_number"`
	Brand        string         `json:"brand"`
	Year         string         `json:"year"`
	Mileage      string         `json:"mileage"`
	CurrentBid   float64        `json:"currentBid"`
	MinBid       float64        `json:"minBid"`
	TimeLeft     string         `json:"timeLeft"`
	ClosingDate  string         `json:"closingDate"`
	Specs        LotSpecs       `json:"specs"`
	Model        string         `json:"model,omitempty"`
	Condition    string         `json:"condition,omitempty"`
	BasePrice    float64        `json:"basePrice,omitempty"`
	BidIncrement float64        `json:"bidIncrement,omitempty"`
	TotalBids    int            `json:"totalBids,omitempty"`
	Gallery      []GalleryImage `json:"gallery,omitempty"`
}

type LotSpecs struct {
	Engine       string `json:"engine,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Fuel         string `json:"fuel,omitempty"`
	Color        string `json:"color,omitempty"`
	Location     string `json:"location,omitempty"`
}

type GalleryImage struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Medium    string `json:"medium"`
}

type Brand struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

type BrandList struct {
	Brands []Brand `json:"brands"`
	Total  int     `json:"total"`
}

type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
	UserBlocked  UserStatus = "blocked"
	UserError    UserStatus = "error"
	UserOffline  UserStatus = "offline"
)

type User struct {
	ID           int        `json:"id"`
	TelegramID   int64      `json:"telegram_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name,omitempty"`
	Username     string     `json:"username,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Status       UserStatus `json:"status"`
	RegisteredAt string     `json:"registered_at"`
	ApprovedAt   string     `json:"approved_at,omitempty"`
	LanguageCode string     `json:"language_code,omitempty"`
	PhotoURL     string     `json:"photo_url,omitempty"`
}

// CanBid reports whether the remote service has approved the user for bidding.
func (u *User) CanBid() bool {
	return u != nil && u.Status == UserApproved
}

// Bid is one row of a user's bidding history as returned by the remote service.
type Bid struct {
	BidID          int     `json:"bid_id"`
	LotID          int     `json:"lot_id"`
	LotTitle       string  `json:"lot_title"`
	Amount         float64 `json:"amount"`
	BidDate        string  `json:"bid_date"`
	IsWinner       bool    `json:"is_winner"`
	IsActive       bool    `json:"is_active"`
	IsHighest      bool    `json:"is_highest"`
	CurrentHighest float64 `json:"current_highest"`
}

type PlaceBidRequest struct {
	LotID      int     `json:"lot_id"`
	Amount     float64 `json:"amount"`
	TelegramID int64   `json:"telegram_id,omitempty"`
	InitData   string  `json:"init_data,omitempty"`
}

type PlaceBidResponse struct {
	Success    bool    `json:"success"`
	BidID      int     `json:"bid_id"`
	Message    string  `json:"message"`
	CurrentBid float64 `json:"current_bid"`
	NextMinBid float64 `json:"next_min_bid"`
}

type RegisterUserRequest struct {
	TelegramID   int64  `json:"telegram_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type RegisterUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    *struct {
		User User `json:"user"`
	} `json:"data,omitempty"`
}

type FilterState struct {
	Brand      string `json:"brand"`
	PriceRange string `json:"priceRange"`
	SearchTerm string `json:"searchTerm"`
}

type ProfileDraft struct {
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Location    string `json:"location"`
}

// Preferences is the per-user state the webview keeps between sessions.
type Preferences struct {
	Favorites []int        `json:"favorites"`
	Filter    FilterState  `json:"filter"`
	Profile   ProfileDraft `json:"profile"`
}

// LotSnapshot is the shared copy of the active lot list.
type LotSnapshot struct {
	Lots        []Lot     `json:"lots"`
	Brands      []Brand   `json:"brands"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type BidAttemptOutcome string

const (
	AttemptAccepted    BidAttemptOutcome = "accepted"
	AttemptRejected    BidAttemptOutcome = "rejected"
	AttemptRateLimited BidAttemptOutcome = "rate_limited"
	AttemptNotApproved BidAttemptOutcome = "not_approved"
	AttemptFailed      BidAttemptOutcome = "failed"
)

// BidAttemptEvent records one pass through the submission flow.
type BidAttemptEvent struct {
	ID              string            `json:"id"`
	LotID           int               `json:"lot_id"`
	TelegramID      int64             `json:"telegram_id"`
	Amount          float64           `json:"amount"`
	Outcome         BidAttemptOutcome `json:"outcome"`
	Reason          string            `json:"reason,omitempty"`
	MinimumRequired float64           `json:"minimum_required,omitempty"`
	CurrentBid      float64           `json:"current_bid,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}
