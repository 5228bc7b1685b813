package handler // handler defines http handlers

import (
    "context"
    "errors"
    "fmt"
    "html"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/microcosm-cc/bluemonday"
    "github.com/rs/zerolog"

    "github.com/guardhire/guardhire-api/internal/apperror"
    "github.com/guardhire/guardhire-api/internal/repository"
)

// dbTimeout bounds every database call made by a handler.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// textPolicy strips all markup from free text before it is stored.
var textPolicy = bluemonday.StrictPolicy()

// sanitize removes tags and returns plain text.  The policy entity-escapes
// what it keeps, so the entities are decoded again.
func sanitize(s string) string {
    return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator { return &Validator{v: validator.New()} }

// Validate returns a Validation error listing every failed field.
func (cv *Validator) Validate(i interface{}) error {
    if err := cv.v.Struct(i); err != nil {
        return apperror.Validation(formatValidationError(err))
    }
    return nil
}

func formatValidationError(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    msgs := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        field := lowerFirst(fe.Field())
        switch fe.Tag() {
        case "required":
            msgs = append(msgs, field+" is required")
        case "email":
            msgs = append(msgs, field+" must be a valid email")
        case "min":
            if fe.Kind().String() == "string" {
                msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
            } else {
                msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
            }
        case "max":
            if fe.Kind().String() == "string" {
                msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
            } else {
                msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
            }
        case "gt", "gte":
            msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
        case "excludes":
            msgs = append(msgs, fmt.Sprintf("%s must not contain %q", field, fe.Param()))
        case "latitude", "longitude":
            msgs = append(msgs, field+" is out of range")
        default:
            msgs = append(msgs, field+" is invalid")
        }
    }
    return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
    if s == "" {
        return s
    }
    return strings.ToLower(s[:1]) + s[1:]
}

// bindValid decodes the body into req and validates it.
func bindValid(c echo.Context, req interface{}) error {
    if err := c.Bind(req); err != nil {
        return apperror.Validation("invalid body")
    }
    return c.Validate(req)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
    id, err := strconv.ParseInt(c.Param(name), 10, 64)
    if err != nil || id <= 0 {
        return 0, apperror.Validation("invalid " + name)
    }
    return id, nil
}

// storeErr translates repository sentinels into client-facing errors.
func storeErr(err error, what string) error {
    switch {
    case err == nil:
        return nil
    case errors.Is(err, repository.ErrNotFound):
        return apperror.NotFound(what + " not found")
    case errors.Is(err, repository.ErrDuplicate):
        return apperror.Conflict(what + " already exists")
    case errors.Is(err, repository.ErrVersionConflict):
        return apperror.Conflict(what + " was modified concurrently")
    }
    return apperror.Internal("query failed", err)
}

// HTTPErrorHandler renders every error as {"error": message}.  Internal
// errors are logged with their cause and answered with a generic message.
func HTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status := apperror.Status(err)
        msg := apperror.Message(err)

        var he *echo.HTTPError
        if errors.As(err, &he) {
            status = he.Code
            msg = http.StatusText(he.Code)
            if s, ok := he.Message.(string); ok && s != "" {
                msg = s
            }
        }
        if status >= http.StatusInternalServerError {
            log.Error().Err(err).
                Str("method", c.Request().Method).
                Str("path", c.Path()).
                Msg("request failed")
        }

        if c.Request().Method == http.MethodHead {
            _ = c.NoContent(status)
            return
        }
        _ = c.JSON(status, echo.Map{"error": msg})
    }
}
