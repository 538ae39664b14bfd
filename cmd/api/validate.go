package main

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/pkg/models"
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pseudoRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// Letters, digits, whitespace, basic punctuation and accented characters
	quoteTextRe = regexp.MustCompile(`^[a-zA-Z0-9\s.,;:!?'"àâäéèêëïîôùûüÿçÀÂÄÉÈÊËÏÎÔÙÛÜŸÇœŒ()\-\n]*$`)
	authorRe    = regexp.MustCompile(`^[a-zA-Z\s.'\-àâäéèêëïîôùûüÿçÀÂÄÉÈÊËÏÎÔÙÛÜŸÇœŒ]+$`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)

func validateRegister(req *registerRequest) []models.FieldError {
	var errs []models.FieldError

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Pseudo = strings.TrimSpace(req.Pseudo)

	switch {
	case req.Email == "":
		errs = append(errs, models.FieldError{Field: "email", Message: "L'email est requis"})
	case len(req.Email) > 255:
		errs = append(errs, models.FieldError{Field: "email", Message: "L'email est trop long"})
	case !emailRe.MatchString(req.Email):
		errs = append(errs, models.FieldError{Field: "email", Message: "Email invalide"})
	}

	switch {
	case req.Pseudo == "":
		errs = append(errs, models.FieldError{Field: "pseudo", Message: "Le pseudo est requis"})
	case utf8.RuneCountInString(req.Pseudo) < 3 || utf8.RuneCountInString(req.Pseudo) > 20:
		errs = append(errs, models.FieldError{Field: "pseudo", Message: "Le pseudo doit contenir entre 3 et 20 caractères"})
	case !pseudoRe.MatchString(req.Pseudo):
		errs = append(errs, models.FieldError{Field: "pseudo", Message: "Le pseudo ne peut contenir que des lettres, chiffres, tirets et underscores"})
	}

	switch {
	case req.Password == "":
		errs = append(errs, models.FieldError{Field: "password", Message: "Le mot de passe est requis"})
	case len(req.Password) < 8 || len(req.Password) > 128:
		errs = append(errs, models.FieldError{Field: "password", Message: "Le mot de passe doit contenir entre 8 et 128 caractères"})
	case !passwordStrong(req.Password):
		errs = append(errs, models.FieldError{Field: "password", Message: "Le mot de passe doit contenir au moins une majuscule, une minuscule et un chiffre"})
	}

	switch {
	case req.ConfirmPassword == "":
		errs = append(errs, models.FieldError{Field: "confirmPassword", Message: "La confirmation du mot de passe est requise"})
	case req.ConfirmPassword != req.Password:
		errs = append(errs, models.FieldError{Field: "confirmPassword", Message: "Les mots de passe ne correspondent pas"})
	}

	return errs
}

func validateLogin(req *loginRequest) []models.FieldError {
	var errs []models.FieldError

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case req.Email == "":
		errs = append(errs, models.FieldError{Field: "email", Message: "L'email est requis"})
	case !emailRe.MatchString(req.Email):
		errs = append(errs, models.FieldError{Field: "email", Message: "Email invalide"})
	}

	if req.Password == "" {
		errs = append(errs, models.FieldError{Field: "password", Message: "Le mot de passe est requis"})
	}

	return errs
}

func passwordStrong(password string) bool {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

func validateQuoteInput(req *quoteRequest, cfg config.QuotesConfig) []models.FieldError {
	var errs []models.FieldError

	req.Quote = strings.TrimSpace(req.Quote)
	req.Author = strings.TrimSpace(req.Author)

	length := utf8.RuneCountInString(req.Quote)
	switch {
	case req.Quote == "":
		errs = append(errs, models.FieldError{Field: "quote", Message: "La citation ne peut pas être vide"})
	case length < cfg.MinLength || length > cfg.MaxLength:
		errs = append(errs, models.FieldError{
			Field:   "quote",
			Message: fmt.Sprintf("La citation doit contenir entre %d et %d caractères", cfg.MinLength, cfg.MaxLength),
		})
	case htmlTagRe.MatchString(req.Quote):
		errs = append(errs, models.FieldError{Field: "quote", Message: "Les balises HTML ne sont pas autorisées"})
	case !quoteTextRe.MatchString(req.Quote):
		errs = append(errs, models.FieldError{Field: "quote", Message: "La citation contient des caractères non autorisés. Seuls les lettres, chiffres et ponctuation basique sont acceptés."})
	}

	if req.Author != "" {
		switch {
		case utf8.RuneCountInString(req.Author) > cfg.MaxAuthorLength:
			errs = append(errs, models.FieldError{
				Field:   "author",
				Message: fmt.Sprintf("L'auteur doit contenir entre 1 et %d caractères", cfg.MaxAuthorLength),
			})
		case htmlTagRe.MatchString(req.Author) || !authorRe.MatchString(req.Author):
			errs = append(errs, models.FieldError{Field: "author", Message: "L'auteur contient des caractères non autorisés. Seuls les lettres, espaces, points et tirets sont acceptés."})
		}
	}

	return errs
}
