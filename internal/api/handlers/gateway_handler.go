package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"auction-bidgate/internal/domain"
	"auction-bidgate/internal/services"
	"auction-bidgate/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const initDataHeader = "X-Telegram-Init-Data"

// rawAmount accepts the bid amount as typed ("AED 4,900") or as a JSON number.
type rawAmount struct {
	text   string
	number decimal.NullDecimal
}

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(b, []byte(`"`)) {
		return json.Unmarshal(b, &a.text)
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return err
	}
	a.number = decimal.NullDecimal{Decimal: d, Valid: true}
	return nil
}

type PlaceBidBody struct {
	TelegramID int64     `json:"telegram_id"`
	Amount     rawAmount `json:"amount"`
	InitData   string    `json:"init_data"`
}

type PlaceBidReply struct {
	BidID      int          `json:"bid_id"`
	AttemptID  string       `json:"attempt_id"`
	Message    string       `json:"message"`
	CurrentBid float64      `json:"current_bid"`
	NextMinBid float64      `json:"next_min_bid"`
	History    []domain.Bid `json:"bidding_history,omitempty"`
}

type FavoriteReply struct {
	LotID    int  `json:"lot_id"`
	Favorite bool `json:"favorite"`
}

type GatewayHandler struct {
	sessions *services.SessionService
	lots     *services.LotService
	bids     *services.BidService
	prefs    *services.PreferenceService
	log      logger.Logger
}

func NewGatewayHandler(sessions *services.SessionService, lots *services.LotService, bids *services.BidService,
	prefs *services.PreferenceService, log logger.Logger) *GatewayHandler {
	return &GatewayHandler{
		sessions: sessions,
		lots:     lots,
		bids:     bids,
		prefs:    prefs,
		log:      log,
	}
}

func (h *GatewayHandler) Register(api *echo.Group) {
	api.POST("/session", h.CreateSession)

	api.GET("/lots", h.ListLots)
	api.GET("/lots/:id", h.GetLot)
	api.POST("/lots/:id/bids", h.PlaceBid)
	api.GET("/brands", h.ListBrands)

	users := api.Group("/users/:telegram_id")
	users.GET("/favorites", h.GetFavorites)
	users.GET("/favorites/lots", h.GetFavoriteLots)
	users.POST("/favorites/:lot_id", h.AddFavorite)
	users.DELETE("/favorites/:lot_id", h.RemoveFavorite)
	users.POST("/favorites/:lot_id/toggle", h.ToggleFavorite)
	users.PUT("/filter", h.SetFilter)
	users.DELETE("/filter", h.ResetFilter)
	users.GET("/profile", h.GetProfile)
	users.PUT("/profile", h.SaveProfile)
	users.GET("/limits/:action", h.GetLimit)
}

func (h *GatewayHandler) CreateSession(c echo.Context) error {
	var req services.SessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	session, err := h.sessions.Initialize(c.Request().Context(), req)
	if err != nil {
		h.log.Error("Failed to initialize session", "telegram_id", req.TelegramID, "error", err)
		return writeError(c, err)
	}
	status := http.StatusOK
	if session.Registered {
		status = http.StatusCreated
	}
	return c.JSON(status, session)
}

func (h *GatewayHandler) ListLots(c echo.Context) error {
	filter := domain.FilterState{
		Brand:      c.QueryParam("brand"),
		PriceRange: c.QueryParam("price_range"),
		SearchTerm: c.QueryParam("search"),
	}

	lots, err := h.lots.FilteredLots(c.Request().Context(), filter)
	if err != nil {
		h.log.Error("Failed to list lots", "error", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, lots)
}

func (h *GatewayHandler) GetLot(c echo.Context) error {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid lot id"})
	}

	details, err := h.lots.Details(c.Request().Context(), lotID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *GatewayHandler) ListBrands(c echo.Context) error {
	brands, err := h.lots.Brands(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.BrandList{Brands: brands, Total: len(brands)})
}

func (h *GatewayHandler) PlaceBid(c echo.Context) error {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid lot id"})
	}

	var body PlaceBidBody
	if err := c.Bind(&body); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}
	initData := body.InitData
	if initData == "" {
		initData = c.Request().Header.Get(initDataHeader)
	}

	result, err := h.bids.PlaceBid(c.Request().Context(), services.PlaceBidCommand{
		LotID:      lotID,
		TelegramID: body.TelegramID,
		Amount:     body.Amount.number,
		RawAmount:  body.Amount.text,
		InitData:   initData,
	})
	if err != nil {
		h.log.Info("Bid not placed", "lot_id", lotID, "telegram_id", body.TelegramID, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, PlaceBidReply{
		BidID:      result.Response.BidID,
		AttemptID:  result.Event.ID,
		Message:    result.Response.Message,
		CurrentBid: result.Response.CurrentBid,
		NextMinBid: result.Response.NextMinBid,
		History:    result.History,
	})
}

func (h *GatewayHandler) GetFavorites(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	prefs, err := h.prefs.Preferences(c.Request().Context(), telegramID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]int{"favorites": prefs.Favorites})
}

func (h *GatewayHandler) GetFavoriteLots(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	lots, err := h.prefs.FavoriteLots(c.Request().Context(), telegramID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, lots)
}

func (h *GatewayHandler) AddFavorite(c echo.Context) error {
	return h.changeFavorite(c, func(telegramID int64, lotID int) (bool, error) {
		return true, h.prefs.AddFavorite(c.Request().Context(), telegramID, lotID)
	})
}

func (h *GatewayHandler) RemoveFavorite(c echo.Context) error {
	return h.changeFavorite(c, func(telegramID int64, lotID int) (bool, error) {
		return false, h.prefs.RemoveFavorite(c.Request().Context(), telegramID, lotID)
	})
}

func (h *GatewayHandler) ToggleFavorite(c echo.Context) error {
	return h.changeFavorite(c, func(telegramID int64, lotID int) (bool, error) {
		return h.prefs.ToggleFavorite(c.Request().Context(), telegramID, lotID)
	})
}

func (h *GatewayHandler) changeFavorite(c echo.Context, change func(int64, int) (bool, error)) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	lotID, err := strconv.Atoi(c.Param("lot_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid lot id"})
	}

	favorite, err := change(telegramID, lotID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, FavoriteReply{LotID: lotID, Favorite: favorite})
}

func (h *GatewayHandler) SetFilter(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var filter domain.FilterState
	if err := c.Bind(&filter); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	merged, err := h.prefs.SetFilter(c.Request().Context(), telegramID, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, merged)
}

func (h *GatewayHandler) ResetFilter(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.prefs.ResetFilter(c.Request().Context(), telegramID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GatewayHandler) GetProfile(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	view, err := h.prefs.Profile(c.Request().Context(), telegramID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *GatewayHandler) SaveProfile(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var draft domain.ProfileDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	saved, err := h.prefs.SaveProfile(c.Request().Context(), telegramID, draft)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *GatewayHandler) GetLimit(c echo.Context) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	status, err := h.prefs.LimitStatus(c.Request().Context(), c.Param("action"), telegramID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func telegramIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrMissingIdentity
	}
	return id, nil
}
