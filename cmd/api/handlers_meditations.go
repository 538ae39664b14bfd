package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/presence-app/presence/internal/meditation"
	"github.com/presence-app/presence/internal/middleware"
	"github.com/presence-app/presence/pkg/models"
)

// GET /api/meditations/:quoteId
func (api *API) getMeditation(c *gin.Context) {
	quoteID := c.Param("quoteId")
	identity := middleware.QuotaIdentity(c)

	result, err := api.meditations.Get(c.Request.Context(), quoteID, identity)
	if err != nil {
		if errors.Is(err, meditation.ErrQuoteNotFound) {
			c.JSON(http.StatusNotFound, models.Fail("Citation non trouvée"))
			return
		}
		api.log.WithQuoteID(quoteID).ErrorWithErr("meditation lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération de la méditation"))
		return
	}

	c.JSON(http.StatusOK, models.OK(result))
}

// POST /api/meditations/:quoteId/generate
func (api *API) generateMeditation(c *gin.Context) {
	quoteID := c.Param("quoteId")
	identity := middleware.QuotaIdentity(c)

	result, err := api.meditations.Generate(c.Request.Context(), quoteID, identity)
	if err != nil {
		var quotaErr *meditation.QuotaError
		switch {
		case errors.Is(err, meditation.ErrQuoteNotFound):
			c.JSON(http.StatusNotFound, models.Fail("Citation non trouvée"))
		case errors.As(err, &quotaErr):
			c.JSON(http.StatusTooManyRequests, models.Response{
				Success: false,
				Data: gin.H{
					"remaining": quotaErr.Remaining,
					"limit":     quotaErr.Limit,
				},
				Error: quotaMessage(quotaErr),
			})
		default:
			api.log.WithQuoteID(quoteID).ErrorWithErr("meditation generation failed", err)
			c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la génération de la méditation"))
		}
		return
	}

	c.JSON(http.StatusOK, models.OK(result))
}

// GET /api/meditations/user/limits
func (api *API) getMeditationLimits(c *gin.Context) {
	identity := middleware.QuotaIdentity(c)

	status, err := api.meditations.Limits(c.Request.Context(), identity)
	if err != nil {
		api.log.ErrorWithErr("meditation limits lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération des limites"))
		return
	}

	c.JSON(http.StatusOK, models.OK(status))
}

func quotaMessage(err *meditation.QuotaError) string {
	if err.IsAuthenticated {
		return fmt.Sprintf("Vous avez atteint la limite de %d méditations par jour", err.Limit)
	}
	return "Limite atteinte. Connectez-vous pour générer jusqu'à 3 méditations par jour"
}
