package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/presence-app/presence/internal/database"
	"github.com/presence-app/presence/internal/metrics"
	"github.com/presence-app/presence/internal/middleware"
	"github.com/presence-app/presence/pkg/models"
)

type quoteRequest struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// GET /api/quotes/random
func (api *API) getRandomQuote(c *gin.Context) {
	quote, err := api.repo.GetRandomPublicQuote(c.Request.Context())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.Fail("Aucune citation disponible"))
			return
		}
		api.log.ErrorWithErr("random quote lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération de la citation"))
		return
	}

	c.JSON(http.StatusOK, models.OK(quote))
}

// GET /api/quotes/author/:pseudo
func (api *API) getQuotesByAuthor(c *gin.Context) {
	pseudo := c.Param("pseudo")

	quotes, err := api.repo.ListQuotesByAuthorPseudo(c.Request.Context(), pseudo)
	if err != nil {
		api.log.ErrorWithErr("quotes by author lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération des citations"))
		return
	}

	c.JSON(http.StatusOK, models.OK(quotes))
}

// POST /api/quotes
func (api *API) createQuote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("Authentication required"))
		return
	}

	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Requête invalide"))
		return
	}

	if fieldErrs := validateQuoteInput(&req, api.cfg.Quotes); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, models.FailFields(fieldErrs))
		return
	}

	user, err := api.repo.GetUser(c.Request.Context(), userID)
	if err != nil {
		api.log.WithUserID(userID).ErrorWithErr("quote owner lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la création de la citation"))
		return
	}

	author := req.Author
	if author == "" {
		author = models.DefaultAuthor
	}

	// Quotes stay private until the owner's email is verified
	quote := &models.Quote{
		ID:        uuid.New().String(),
		Text:      req.Quote,
		Author:    author,
		CreatedBy: &userID,
		IsPublic:  user.EmailVerified,
	}

	if err := api.repo.CreateQuote(c.Request.Context(), quote); err != nil {
		api.log.WithUserID(userID).ErrorWithErr("quote creation failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la création de la citation"))
		return
	}

	metrics.QuotesCreatedTotal.Inc()

	c.JSON(http.StatusCreated, models.OK(quote))
}

// GET /api/quotes/my-quotes
func (api *API) getMyQuotes(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("Authentication required"))
		return
	}

	quotes, err := api.repo.ListQuotesByOwner(c.Request.Context(), userID)
	if err != nil {
		api.log.WithUserID(userID).ErrorWithErr("my quotes lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération des citations"))
		return
	}

	c.JSON(http.StatusOK, models.OK(quotes))
}

// PUT /api/quotes/:id
func (api *API) updateQuote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("Authentication required"))
		return
	}
	quoteID := c.Param("id")

	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Requête invalide"))
		return
	}

	if fieldErrs := validateQuoteInput(&req, api.cfg.Quotes); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, models.FailFields(fieldErrs))
		return
	}

	if !api.ensureOwnership(c, quoteID, userID, "Vous n'êtes pas autorisé à modifier cette citation") {
		return
	}

	author := req.Author
	if author == "" {
		author = models.DefaultAuthor
	}

	quote, err := api.repo.UpdateQuote(c.Request.Context(), quoteID, userID, req.Quote, author)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.Fail("Citation non trouvée"))
			return
		}
		api.log.WithQuoteID(quoteID).ErrorWithErr("quote update failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la modification de la citation"))
		return
	}

	api.invalidateQuote(c.Request.Context(), quoteID)

	c.JSON(http.StatusOK, models.OK(quote))
}

// DELETE /api/quotes/:id
func (api *API) deleteQuote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("Authentication required"))
		return
	}
	quoteID := c.Param("id")

	if !api.ensureOwnership(c, quoteID, userID, "Vous n'êtes pas autorisé à supprimer cette citation") {
		return
	}

	if err := api.repo.DeleteQuote(c.Request.Context(), quoteID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.Fail("Citation non trouvée"))
			return
		}
		api.log.WithQuoteID(quoteID).ErrorWithErr("quote deletion failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la suppression de la citation"))
		return
	}

	api.invalidateQuote(c.Request.Context(), quoteID)

	c.JSON(http.StatusOK, models.OK(gin.H{
		"message": "Citation supprimée avec succès",
		"id":      quoteID,
	}))
}

// ensureOwnership distinguishes a missing quote (404) from somebody
// else's quote (403). Writes the response and returns false on failure.
func (api *API) ensureOwnership(c *gin.Context, quoteID, userID, forbiddenMsg string) bool {
	quote, err := api.lookupQuote(c.Request.Context(), quoteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.Fail("Citation non trouvée"))
			return false
		}
		api.log.WithQuoteID(quoteID).ErrorWithErr("quote lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération de la citation"))
		return false
	}

	if quote.CreatedBy == nil || *quote.CreatedBy != userID {
		c.JSON(http.StatusForbidden, models.Fail(forbiddenMsg))
		return false
	}

	return true
}

// lookupQuote reads through the Redis quote cache when one is wired
func (api *API) lookupQuote(ctx context.Context, quoteID string) (*models.Quote, error) {
	if api.cache != nil {
		if quote, err := api.cache.GetQuote(ctx, quoteID); err == nil && quote != nil {
			return quote, nil
		}
	}

	quote, err := api.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if api.cache != nil {
		if err := api.cache.SetQuote(ctx, quote, api.cfg.Meditation.CacheTTL); err != nil {
			api.log.WithQuoteID(quoteID).ErrorWithErr("quote cache write failed", err)
		}
	}
	return quote, nil
}

func (api *API) invalidateQuote(ctx context.Context, quoteID string) {
	if api.cache == nil {
		return
	}
	if err := api.cache.DeleteQuote(ctx, quoteID); err != nil {
		api.log.WithQuoteID(quoteID).ErrorWithErr("quote cache invalidation failed", err)
	}
}
