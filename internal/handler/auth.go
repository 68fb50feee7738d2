package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/middleware"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/store"
)

const sessionMaxAge = int(store.SessionTTL / time.Second)

// bcrypt hashes at most 72 bytes of password.
const maxPasswordBytes = 72

var passwordTooLong = apperror.FieldError{Field: "password", Message: "Password must be at most 72 bytes"}

type registerInput struct {
	Name            string `validate:"required,max=100"`
	Email           string `validate:"required,email,max=254"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"eqfield=Password"`
	Terms           bool   `validate:"required"`
}

var registerMessages = map[string]string{
	"registerInput.Name.required":           "Name is required",
	"registerInput.Name.max":                "Name must be less than 100 characters",
	"registerInput.Email.required":          "Email is required",
	"registerInput.Email.email":             "Please enter a valid email address",
	"registerInput.Email.max":               "Please enter a valid email address",
	"registerInput.Password.required":       "Password is required",
	"registerInput.Password.min":            "Password must be at least 8 characters",
	"registerInput.Password.max":            "Password must be at most 72 characters",
	"registerInput.ConfirmPassword.eqfield": "Passwords don't match",
	"registerInput.Terms.required":          "You must accept the terms and conditions",
}

var registerFields = map[string]string{
	"Name":            "name",
	"Email":           "email",
	"Password":        "password",
	"ConfirmPassword": "confirm_password",
	"Terms":           "terms",
}

type AuthHandler struct {
	users         *store.UserStore
	sessions      *store.SessionStore
	render        *Renderer
	validate      *validator.Validate
	secureCookies bool
	defaultTZ     string
	logger        *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	rd *Renderer,
	secureCookies bool,
	defaultTZ string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:         us,
		sessions:      ss,
		render:        rd,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		secureCookies: secureCookies,
		defaultTZ:     defaultTZ,
		logger:        logger,
	}
}

// signedIn reports whether the request carries a live session.
func (h *AuthHandler) signedIn(r *http.Request) bool {
	c, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	sess, err := h.sessions.GetByToken(r.Context(), c.Value)
	return err == nil && sess != nil
}

// Landing is the signed-out home page.
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render.Page(w, r, http.StatusOK, "landing", map[string]any{"Title": "Build Better Habits"})
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render.Page(w, r, http.StatusOK, "login", map[string]any{
		"Title": "Sign In",
		"Email": "",
		"Error": "",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		h.render.Page(w, r, status, "login", map[string]any{
			"Title": "Sign In",
			"Email": emailAddr,
			"Error": msg,
		})
	}

	if emailAddr == "" || password == "" {
		fail(http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), emailAddr)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		fail(http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		fail(http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Error("create session", "error", err)
		fail(http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	h.logger.Info("user signed in", "user", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render.Page(w, r, http.StatusOK, "register", map[string]any{
		"Title": "Create Account",
		"Input": registerInput{},
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in := registerInput{
		Name:            strings.TrimSpace(r.FormValue("name")),
		Email:           strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		Terms:           r.FormValue("terms") == "on",
	}

	fail := func(status int, errs apperror.ValidationErrors) {
		in.Password, in.ConfirmPassword = "", ""
		h.render.Page(w, r, status, "register", map[string]any{
			"Title":  "Create Account",
			"Input":  in,
			"Errors": errs.Map(),
		})
	}

	var errs apperror.ValidationErrors
	if err := h.validate.Struct(in); err != nil {
		errs = apperror.FromValidator(err, registerMessages, func(f string) string { return registerFields[f] })
	}
	if len(in.Password) > maxPasswordBytes && errs.Field("password") == "" {
		errs = append(errs, passwordTooLong)
	}
	if len(errs) > 0 {
		fail(http.StatusUnprocessableEntity, errs)
		return
	}

	existing, err := h.users.GetByEmail(r.Context(), in.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		fail(http.StatusConflict, apperror.ValidationErrors{{Field: "email", Message: "An account with this email already exists"}})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		fail(http.StatusUnprocessableEntity, apperror.ValidationErrors{passwordTooLong})
		return
	}
	if err != nil {
		h.logger.Error("hash password", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	user, err := h.users.Create(r.Context(), in.Email, in.Name, string(hash), h.defaultTZ)
	if err != nil {
		h.logger.Error("create user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("user registered", "user", user.ID)
	flashSuccess(w, "Welcome to FitTrack!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(r.Context(), cookie.Value); err == nil && sess != nil {
			if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) error {
	sess, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies || r.TLS != nil,
	})
	return nil
}
