package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/presence-app/presence/internal/auth"
	"github.com/presence-app/presence/internal/database"
	"github.com/presence-app/presence/internal/metrics"
	"github.com/presence-app/presence/internal/middleware"
	"github.com/presence-app/presence/internal/queue"
	"github.com/presence-app/presence/pkg/models"
)

type registerRequest struct {
	Email           string `json:"email"`
	Pseudo          string `json:"pseudo"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *API) setAuthCookies(c *gin.Context, tokens auth.TokenPair) {
	secure := api.cfg.Auth.SecureCookies
	if secure {
		c.SetSameSite(http.SameSiteStrictMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	domain := api.cfg.Auth.CookieDomain
	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken,
		int(api.cfg.Auth.AccessTTL/time.Second), "/", domain, secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, tokens.RefreshToken,
		int(api.cfg.Auth.RefreshTTL/time.Second), "/", domain, secure, true)
}

func (api *API) clearAuthCookies(c *gin.Context) {
	domain := api.cfg.Auth.CookieDomain
	secure := api.cfg.Auth.SecureCookies
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", domain, secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", domain, secure, true)
}

// POST /api/auth/register
func (api *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Requête invalide"))
		return
	}

	if fieldErrs := validateRegister(&req); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, models.FailFields(fieldErrs))
		return
	}

	result, err := api.auth.Register(c.Request.Context(), req.Email, req.Pseudo, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, models.FailFields([]models.FieldError{
				{Field: "email", Message: "Cet email est déjà utilisé"},
			}))
		case errors.Is(err, auth.ErrPseudoTaken):
			c.JSON(http.StatusBadRequest, models.FailFields([]models.FieldError{
				{Field: "pseudo", Message: "Ce pseudo est déjà utilisé"},
			}))
		default:
			api.log.ErrorWithErr("register failed", err)
			c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de l'inscription"))
		}
		return
	}

	api.setAuthCookies(c, result.Tokens)
	metrics.RegistrationsTotal.Inc()

	// Verification email is queued best-effort: a broker outage must not
	// fail the registration itself.
	job := &queue.EmailJob{
		Kind:      queue.EmailJobVerification,
		To:        result.User.Email,
		Pseudo:    result.User.Pseudo,
		Token:     result.VerificationToken,
		CreatedAt: time.Now().UTC(),
	}
	if err := api.queue.PublishEmail(c.Request.Context(), job); err != nil {
		api.log.WithUserID(result.User.ID).ErrorWithErr("failed to queue verification email", err)
	}

	c.JSON(http.StatusCreated, models.OK(gin.H{
		"user":    result.User.Public(),
		"message": "Inscription réussie. Vérifiez votre email pour activer votre compte.",
	}))
}

// POST /api/auth/login
func (api *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Requête invalide"))
		return
	}

	if fieldErrs := validateLogin(&req); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, models.FailFields(fieldErrs))
		return
	}

	user, tokens, err := api.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, models.Fail("Email ou mot de passe incorrect"))
			return
		}
		api.log.ErrorWithErr("login failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la connexion"))
		return
	}

	api.setAuthCookies(c, tokens)

	c.JSON(http.StatusOK, models.OK(gin.H{
		"user":    user.Public(),
		"message": "Connexion réussie",
	}))
}

// POST /api/auth/refresh
func (api *API) refresh(c *gin.Context) {
	token, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, models.Fail("Refresh token manquant"))
		return
	}

	tokens, err := api.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		api.clearAuthCookies(c)
		if errors.Is(err, auth.ErrTokenExpired) {
			c.JSON(http.StatusUnauthorized, models.Fail("Session expirée, veuillez vous reconnecter"))
			return
		}
		c.JSON(http.StatusUnauthorized, models.Fail("Token invalide"))
		return
	}

	api.setAuthCookies(c, tokens)

	c.JSON(http.StatusOK, models.OK(gin.H{"message": "Token rafraîchi avec succès"}))
}

// POST /api/auth/logout
func (api *API) logout(c *gin.Context) {
	api.clearAuthCookies(c)
	c.JSON(http.StatusOK, models.OK(gin.H{"message": "Déconnexion réussie"}))
}

// GET /api/auth/me
//
// Optional auth: an unauthenticated caller gets user=null, never a 401,
// so the frontend can probe the session without error handling.
func (api *API) me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusOK, models.OK(gin.H{"user": nil}))
		return
	}

	user, err := api.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			c.JSON(http.StatusOK, models.OK(gin.H{"user": nil}))
			return
		}
		api.log.WithUserID(userID).ErrorWithErr("profile lookup failed", err)
		c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la récupération du profil"))
		return
	}

	c.JSON(http.StatusOK, models.OK(gin.H{"user": user.Public()}))
}

// GET /api/auth/verify-email/:token
func (api *API) verifyEmail(c *gin.Context) {
	token := c.Param("token")

	user, err := api.auth.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, database.ErrNotFound):
			metrics.EmailVerificationsTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, models.Fail("Token de vérification invalide"))
		case errors.Is(err, auth.ErrTokenExpired):
			metrics.EmailVerificationsTotal.WithLabelValues("expired").Inc()
			c.JSON(http.StatusBadRequest, models.Fail("Le token de vérification a expiré"))
		default:
			api.log.ErrorWithErr("email verification failed", err)
			c.JSON(http.StatusInternalServerError, models.Fail("Erreur lors de la vérification de l'email"))
		}
		return
	}

	metrics.EmailVerificationsTotal.WithLabelValues("verified").Inc()

	c.JSON(http.StatusOK, models.OK(gin.H{
		"user":    user.Public(),
		"message": "Email vérifié avec succès ! Vos citations sont maintenant publiques.",
	}))
}
