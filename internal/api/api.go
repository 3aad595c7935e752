package api

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tcg-arbitrage/internal/analyzer"
	"tcg-arbitrage/internal/models"
	"tcg-arbitrage/internal/services/fx"
	"tcg-arbitrage/internal/services/notify"
	"tcg-arbitrage/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type APIHandler struct {
	db      *gorm.DB
	store   *store.Store
	builder *analyzer.CacheBuilder
	fx      *fx.Service
	mailer  *notify.Mailer
	hub     *Hub

	// serialize recomputes; concurrent triggers would thrash the cache table
	recomputeMu sync.Mutex
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, mailer *notify.Mailer) *APIHandler {
	st := store.New(db)
	handler := &APIHandler{
		db:      db,
		store:   st,
		builder: analyzer.NewCacheBuilder(st, st, st),
		fx:      fx.NewService(),
		mailer:  mailer,
		hub:     NewHub(),
	}

	opportunities := r.Group("/opportunities")
	{
		opportunities.GET("", handler.GetOpportunities)
		opportunities.POST("/recalculate", handler.RecalculateOpportunities)
	}

	cards := r.Group("/cards")
	{
		cards.GET("", handler.ListCards)
		cards.GET("/:id", handler.GetCard)
	}

	r.GET("/settings", handler.GetSettings)
	r.PUT("/settings", handler.UpdateSettings)

	r.GET("/fx", handler.GetFxRates)

	watchlist := r.Group("/watchlist")
	{
		watchlist.GET("", handler.GetWatchlist)
		watchlist.POST("", handler.AddToWatchlist)
		watchlist.DELETE("/:cardId", handler.RemoveFromWatchlist)
	}

	alerts := r.Group("/alerts")
	{
		alerts.GET("", handler.ListAlerts)
		alerts.POST("", handler.CreateAlert)
		alerts.POST("/notify", handler.NotifyAlerts)
	}

	r.GET("/ws", handler.hub.HandleWS)

	return handler
}

// GetOpportunities serves the materialized ranking. Reads never touch the
// evaluation pipeline; they only filter and sort cache rows.
func (h *APIHandler) GetOpportunities(c *gin.Context) {
	minRoi, _ := strconv.ParseFloat(c.DefaultQuery("minRoi", "0"), 64)
	sortBy := c.DefaultQuery("sortBy", "opportunityScore")
	sortOrder := c.DefaultQuery("sortOrder", "desc")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > analyzer.DefaultTopN {
		limit = analyzer.DefaultTopN
	}

	rows, err := h.store.CachedOpportunities(c.Request.Context(), minRoi, sortBy, sortOrder, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load opportunities"})
		return
	}

	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	var cacheUpdatedAt *time.Time
	if len(rows) > 0 {
		cacheUpdatedAt = &rows[0].CalculatedAt
	}

	c.JSON(http.StatusOK, gin.H{
		"opportunities":  rows,
		"settings":       settings,
		"cacheUpdatedAt": cacheUpdatedAt,
		"fromCache":      true,
	})
}

// RecalculateOpportunities triggers a full cache recompute and pushes a
// refresh event to websocket clients.
func (h *APIHandler) RecalculateOpportunities(c *gin.Context) {
	h.recomputeMu.Lock()
	defer h.recomputeMu.Unlock()

	count, err := h.builder.Recompute(c.Request.Context())
	if err != nil {
		log.Printf("[OpportunityCache] recompute failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.hub.Broadcast(Event{Type: "cache_refreshed", Count: count, Timestamp: time.Now()})
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cached":    count,
		"timestamp": time.Now(),
	})
}

func (h *APIHandler) ListCards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if pageSize < 1 || pageSize > 250 {
		pageSize = 50
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Card{}).Preload("Set")
	if q := c.Query("q"); q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}
	if setID := c.Query("setId"); setID != "" {
		query = query.Where("set_id = ?", setID)
	}

	var total int64
	query.Count(&total)

	var cards []models.Card
	if err := query.Order("name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&cards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":    cards,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

// GetCard returns one card with its full snapshot history and the graded
// buy/sell ladder (top 5 rungs by ROI).
func (h *APIHandler) GetCard(c *gin.Context) {
	cardID := c.Param("id")

	var card models.Card
	err := h.db.WithContext(c.Request.Context()).Preload("Set").First(&card, "id = ?", cardID).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load card"})
		return
	}

	snapshots, err := h.store.AllSnapshots(c.Request.Context(), cardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshots"})
		return
	}

	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	var graded []models.PriceSnapshot
	var tcgPrice, cmPrice float64
	for _, s := range snapshots {
		switch {
		case s.Source == models.SourcePriceTracker && s.PsaGrade != nil:
			graded = append(graded, s)
		case s.Source == models.SourceTCGPlayer && tcgPrice == 0 && s.PriceMarket != nil:
			tcgPrice = *s.PriceMarket
		case s.Source == models.SourceCardmarket && cmPrice == 0 && s.PriceMarket != nil:
			cmPrice = *s.PriceMarket
		}
	}

	// Base price for the synthesized ladder: best ungraded quote in USD,
	// floor of 10 when the card has no price at all.
	basePrice := tcgPrice
	if basePrice == 0 {
		basePrice = cmPrice * settings.FxRateEurUsd
	}
	if basePrice == 0 {
		basePrice = 10
	}

	ladder := analyzer.RankGradedOpportunities(graded, basePrice, settings)
	if len(ladder) > 5 {
		ladder = ladder[:5]
	}

	c.JSON(http.StatusOK, gin.H{
		"card":             card,
		"snapshots":        snapshots,
		"psaOpportunities": ladder,
	})
}

func (h *APIHandler) GetSettings(c *gin.Context) {
	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *APIHandler) UpdateSettings(c *gin.Context) {
	var payload models.Settings
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	// Preserve seeding bookkeeping; the update operation only owns the
	// evaluation parameters.
	current, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	payload.ID = 1
	payload.LastSeedIndex = current.LastSeedIndex
	payload.SeedProgress = current.SeedProgress

	if err := h.store.Save(c.Request.Context(), payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// GetFxRates serves current PTAX quotes plus the USD import-opportunity
// alert derived from the weekly average.
func (h *APIHandler) GetFxRates(c *gin.Context) {
	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	var rates []fx.Rate
	var importAlert *fx.ImportAlert

	if usd, err := h.fx.Latest("USD"); err == nil {
		weekly := h.fx.WeeklySellRates("USD")
		importAlert = fx.CheckImportAlert(usd.SellRate, weekly, settings.ImportAlertThreshold)
		usd.Currency = "USD/BRL"
		usd.Symbol = "$"
		if len(weekly) > 1 {
			sum := 0.0
			for _, r := range weekly[1:] {
				sum += r
			}
			usd.WeeklyAvg = sum / float64(len(weekly)-1)
		}
		rates = append(rates, *usd)
	}
	if eur, err := h.fx.Latest("EUR"); err == nil {
		eur.Currency = "EUR/BRL"
		eur.Symbol = "€"
		rates = append(rates, *eur)
	}
	if jpy, err := h.fx.Latest("JPY"); err == nil {
		jpy.Currency = "JPY/BRL"
		jpy.Symbol = "¥"
		rates = append(rates, *jpy)
	}

	c.JSON(http.StatusOK, gin.H{
		"rates":                rates,
		"importAlert":          importAlert,
		"importAlertThreshold": settings.ImportAlertThreshold,
		"success":              len(rates) > 0,
	})
}

// quickRoi is the lightweight pre-fee spread ROI used by the watchlist and
// alert views: min/max of the two latest marketplace quotes in base
// currency, no fees or shipping.
func (h *APIHandler) quickRoi(c *gin.Context, cardID string, settings models.Settings) (roi, tcgPrice, cmPrice float64) {
	snapshots, err := h.store.AllSnapshots(c.Request.Context(), cardID)
	if err != nil {
		return 0, 0, 0
	}

	for _, s := range snapshots {
		if s.PriceMarket == nil {
			continue
		}
		if s.Source == models.SourceTCGPlayer && tcgPrice == 0 {
			tcgPrice = *s.PriceMarket
		}
		if s.Source == models.SourceCardmarket && cmPrice == 0 {
			cmPrice = *s.PriceMarket
		}
	}

	cmUsd := cmPrice * settings.FxRateEurUsd
	var buy, sell float64
	switch {
	case tcgPrice > 0 && cmUsd > 0:
		buy, sell = tcgPrice, cmUsd
		if cmUsd < tcgPrice {
			buy, sell = cmUsd, tcgPrice
		}
	case tcgPrice > 0:
		buy, sell = tcgPrice, tcgPrice
	case cmUsd > 0:
		buy, sell = cmUsd, cmUsd
	default:
		return 0, tcgPrice, cmPrice
	}

	roi = (sell - buy) / buy * 100
	return roi, tcgPrice, cmPrice
}

func (h *APIHandler) GetWatchlist(c *gin.Context) {
	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	var items []models.WatchlistItem
	if err := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load watchlist"})
		return
	}

	type watchlistEntry struct {
		ID        uint      `json:"id"`
		CardID    string    `json:"card_id"`
		CardName  string    `json:"card_name"`
		SetName   string    `json:"set_name"`
		Rarity    string    `json:"rarity"`
		TcgPrice  float64   `json:"tcg_price"`
		CmPrice   float64   `json:"cm_price"`
		Roi       float64   `json:"roi"`
		Notes     string    `json:"notes"`
		CreatedAt time.Time `json:"created_at"`
	}

	entries := make([]watchlistEntry, 0, len(items))
	for _, item := range items {
		var card models.Card
		if err := h.db.WithContext(c.Request.Context()).Preload("Set").First(&card, "id = ?", item.CardID).Error; err != nil {
			continue
		}
		roi, tcg, cm := h.quickRoi(c, item.CardID, settings)
		entries = append(entries, watchlistEntry{
			ID:        item.ID,
			CardID:    item.CardID,
			CardName:  card.Name,
			SetName:   card.Set.Name,
			Rarity:    card.Rarity,
			TcgPrice:  tcg,
			CmPrice:   cm,
			Roi:       roi,
			Notes:     item.Notes,
			CreatedAt: item.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *APIHandler) AddToWatchlist(c *gin.Context) {
	var payload struct {
		CardID string `json:"card_id" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_id required"})
		return
	}

	var existing models.WatchlistItem
	if err := h.db.WithContext(c.Request.Context()).First(&existing, "card_id = ?", payload.CardID).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "already in watchlist"})
		return
	}

	item := models.WatchlistItem{CardID: payload.CardID, Notes: payload.Notes}
	if err := h.db.WithContext(c.Request.Context()).Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "success": true})
}

func (h *APIHandler) RemoveFromWatchlist(c *gin.Context) {
	cardID := c.Param("cardId")
	if err := h.db.WithContext(c.Request.Context()).Where("card_id = ?", cardID).Delete(&models.WatchlistItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *APIHandler) ListAlerts(c *gin.Context) {
	var alerts []models.Alert
	if err := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *APIHandler) CreateAlert(c *gin.Context) {
	var payload struct {
		CardID       string  `json:"card_id" binding:"required"`
		CardName     string  `json:"card_name"`
		Email        string  `json:"email" binding:"required"`
		RoiThreshold float64 `json:"roi_threshold" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_id, email and roi_threshold required"})
		return
	}

	alert := models.Alert{
		CardID:       payload.CardID,
		CardName:     payload.CardName,
		Email:        payload.Email,
		RoiThreshold: payload.RoiThreshold,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert, "success": true})
}

// NotifyAlerts walks all untriggered alerts, checks current quick ROI
// against each threshold, and mails the ones that hit. A failed send leaves
// the alert untriggered for the next pass.
func (h *APIHandler) NotifyAlerts(c *gin.Context) {
	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	var alerts []models.Alert
	if err := h.db.WithContext(c.Request.Context()).Where("triggered = ?", false).Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}

	notified := 0
	for _, alert := range alerts {
		roi, tcg, cm := h.quickRoi(c, alert.CardID, settings)
		if roi < alert.RoiThreshold {
			continue
		}

		var card models.Card
		setName := ""
		if err := h.db.WithContext(c.Request.Context()).Preload("Set").First(&card, "id = ?", alert.CardID).Error; err == nil {
			setName = card.Set.Name
		}

		if !h.mailer.Enabled() {
			log.Printf("alert %d hit (%.1f%% >= %.0f%%) but no mail relay configured", alert.ID, roi, alert.RoiThreshold)
			continue
		}

		err := h.mailer.Send(notify.AlertEmail{
			Recipient: alert.Email,
			CardID:    alert.CardID,
			CardName:  alert.CardName,
			SetName:   setName,
			Roi:       roi,
			Threshold: alert.RoiThreshold,
			TcgPrice:  tcg,
			CmPrice:   cm,
		})
		if err != nil {
			log.Printf("failed to send alert %d: %v", alert.ID, err)
			continue
		}

		now := time.Now()
		h.db.WithContext(c.Request.Context()).Model(&models.Alert{}).
			Where("id = ?", alert.ID).
			Updates(map[string]interface{}{"triggered": true, "triggered_at": now})
		notified++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"checked":  len(alerts),
		"notified": notified,
	})
}
