package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/guardhire/guardhire-api/internal/apperror"
    "github.com/guardhire/guardhire-api/internal/config"
    "github.com/guardhire/guardhire-api/internal/middleware"
    "github.com/guardhire/guardhire-api/internal/model"
    "github.com/guardhire/guardhire-api/internal/repository"
    "github.com/guardhire/guardhire-api/internal/utils"
)

// ProfileHandler serves registration, login and profile management.
type ProfileHandler struct {
    Cfg      config.Config
    Profiles *repository.ProfileRepo
}

func NewProfileHandler(cfg config.Config, profiles *repository.ProfileRepo) *ProfileHandler {
    return &ProfileHandler{Cfg: cfg, Profiles: profiles}
}

// ----- DTOs -----

type registerReq struct {
    Username  string `json:"username" validate:"required,min=3,max=100,excludes=@"`
    Mail      string `json:"mail" validate:"required,email,max=255"`
    Password  string `json:"password" validate:"required,min=6,max=72"`
    FirstName string `json:"firstName" validate:"required,max=100"`
    LastName  string `json:"lastName" validate:"required,max=100"`
    Phone     string `json:"phone" validate:"max=32"`
    JobTitle  string `json:"jobTitle" validate:"max=100"`
}

type loginReq struct {
    Identifier string `json:"identifier"`
    Username   string `json:"username"`
    Mail       string `json:"mail"`
    Password   string `json:"password" validate:"required"`
}

type guardDetailsReq struct {
    City            string  `json:"city" validate:"required,max=100"`
    Gender          string  `json:"gender" validate:"max=32"`
    YearsExperience int     `json:"yearsExperience" validate:"min=0,max=80"`
    Specialties     string  `json:"specialties" validate:"max=1000"`
    FirearmLicense  bool    `json:"firearmLicense"`
    Rating          float64 `json:"rating" validate:"min=0,max=10"`
}

func (r guardDetailsReq) model() *model.GuardDetails {
    return &model.GuardDetails{
        City:            sanitize(r.City),
        Gender:          sanitize(r.Gender),
        YearsExperience: r.YearsExperience,
        Specialties:     sanitize(r.Specialties),
        FirearmLicense:  r.FirearmLicense,
        Rating:          r.Rating,
    }
}

type registerGuardReq struct {
    registerReq
    Details guardDetailsReq `json:"details"`
}

type changeRoleReq struct {
    Role    string           `json:"role" validate:"required"`
    Details *guardDetailsReq `json:"details"`
}

type updateSelfReq struct {
    FirstName string `json:"firstName" validate:"required,max=100"`
    LastName  string `json:"lastName" validate:"required,max=100"`
    Phone     string `json:"phone" validate:"max=32"`
    JobTitle  string `json:"jobTitle" validate:"max=100"`
}

type checkEmailReq struct {
    Mail  string `json:"mail"`
    Email string `json:"email"`
}

type authResp struct {
    Token   string        `json:"token"`
    Expires string        `json:"expires"`
    User    model.Profile `json:"user"`
}

func (h *ProfileHandler) newProfile(req registerReq, role model.Role) (*model.Profile, error) {
    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return nil, apperror.Internal("hash password failed", err)
    }
    return &model.Profile{
        FirstName:    sanitize(req.FirstName),
        LastName:     sanitize(req.LastName),
        Username:     strings.TrimSpace(req.Username),
        Mail:         strings.ToLower(strings.TrimSpace(req.Mail)),
        Phone:        strings.TrimSpace(req.Phone),
        JobTitle:     sanitize(req.JobTitle),
        PasswordHash: hash,
        Role:         role,
    }, nil
}

func (h *ProfileHandler) issue(c echo.Context, status int, p model.Profile) error {
    tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, p, h.Cfg.TokenTTL)
    if err != nil {
        return apperror.Internal("issue token failed", err)
    }
    return c.JSON(status, authResp{Token: tok.Token, Expires: tok.Exp.Format(time.RFC3339), User: p})
}

// Register creates a user profile and returns a session token.  The role
// is always user; a taken username or mail is a 400 and writes nothing.
func (h *ProfileHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    p, err := h.newProfile(req, model.RoleUser)
    if err != nil {
        return err
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Profiles.Create(ctx, p); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return apperror.Validation("username or mail already taken")
        }
        return storeErr(err, "profile")
    }
    return h.issue(c, http.StatusCreated, *p)
}

// Login verifies credentials given as username or mail.
func (h *ProfileHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    identifier := strings.TrimSpace(req.Identifier)
    if identifier == "" {
        identifier = strings.TrimSpace(req.Username)
    }
    if identifier == "" {
        identifier = strings.TrimSpace(req.Mail)
    }
    if identifier == "" {
        return apperror.Validation("identifier is required")
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    p, err := h.Profiles.GetByLogin(ctx, identifier)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return apperror.Auth("invalid credentials")
        }
        return storeErr(err, "profile")
    }
    if !utils.VerifyPassword(p.PasswordHash, req.Password) {
        return apperror.Auth("invalid credentials")
    }
    return h.issue(c, http.StatusOK, p)
}

// CheckEmail reports whether a mail address is already registered.
func (h *ProfileHandler) CheckEmail(c echo.Context) error {
    var req checkEmailReq
    if err := c.Bind(&req); err != nil {
        return apperror.Validation("invalid body")
    }
    mail := req.Mail
    if mail == "" {
        mail = req.Email
    }
    if strings.TrimSpace(mail) == "" {
        return apperror.Validation("mail is required")
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    exists, err := h.Profiles.MailExists(ctx, mail)
    if err != nil {
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusOK, echo.Map{"exists": exists})
}

// Me returns the caller's profile.
func (h *ProfileHandler) Me(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    p, err := h.Profiles.GetByID(ctx, middleware.CurrentUserID(c))
    if err != nil {
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusOK, p)
}

// UpdateMe edits the caller's names, phone and job title.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
    var req updateSelfReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    id := middleware.CurrentUserID(c)

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Profiles.UpdateSelf(ctx, id, sanitize(req.FirstName), sanitize(req.LastName),
        strings.TrimSpace(req.Phone), sanitize(req.JobTitle)); err != nil {
        return storeErr(err, "profile")
    }
    p, err := h.Profiles.GetByID(ctx, id)
    if err != nil {
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusOK, p)
}

// List returns every profile.
func (h *ProfileHandler) List(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    list, err := h.Profiles.List(ctx)
    if err != nil {
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusOK, list)
}

// Get returns one profile.  Guards are returned with their details.
func (h *ProfileHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    p, err := h.Profiles.GetByID(ctx, id)
    if err != nil {
        return storeErr(err, "profile")
    }
    if p.Role != model.RoleGuard {
        return c.JSON(http.StatusOK, p)
    }
    d, err := h.Profiles.GuardDetails(ctx, id)
    if err != nil && !errors.Is(err, repository.ErrNotFound) {
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusOK, model.Guard{Profile: p, Details: d})
}

// ChangeRole sets a profile's role.  Becoming a guard requires details.
func (h *ProfileHandler) ChangeRole(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req changeRoleReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    role, err := model.ParseRole(req.Role)
    if err != nil {
        return apperror.Validation(err.Error())
    }
    var details *model.GuardDetails
    if role == model.RoleGuard {
        if req.Details == nil {
            return apperror.Validation("details are required for the guard role")
        }
        if err := c.Validate(req.Details); err != nil {
            return err
        }
        details = req.Details.model()
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Profiles.ChangeRole(ctx, id, role, details); err != nil {
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "role": role})
}

// RegisterGuard creates a guard profile together with its details.
func (h *ProfileHandler) RegisterGuard(c echo.Context) error {
    var req registerGuardReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    p, err := h.newProfile(req.registerReq, model.RoleGuard)
    if err != nil {
        return err
    }
    d := req.Details.model()

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Profiles.CreateGuard(ctx, p, d); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return apperror.Validation("username or mail already taken")
        }
        return storeErr(err, "profile")
    }
    return c.JSON(http.StatusCreated, model.Guard{Profile: *p, Details: *d})
}
