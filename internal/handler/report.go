package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/guardhire/guardhire-api/internal/apperror"
	"github.com/guardhire/guardhire-api/internal/middleware"
	"github.com/guardhire/guardhire-api/internal/model"
	"github.com/guardhire/guardhire-api/internal/repository"
	"github.com/guardhire/guardhire-api/internal/storage"
)

// ReportHandler accepts guard field reports with optional photo and audio
// attachments.
type ReportHandler struct {
	Reports *repository.ReportRepo
	Orders  *repository.OrderRepo
	Files   *storage.Disk
	Log     zerolog.Logger
}

func NewReportHandler(reports *repository.ReportRepo, orders *repository.OrderRepo, files *storage.Disk, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{Reports: reports, Orders: orders, Files: files, Log: log}
}

func normalizeReports(list []model.Report) []model.Report {
	for i := range list {
		list[i].PhotoPath = storage.NormalizePtr(list[i].PhotoPath)
		list[i].AudioPath = storage.NormalizePtr(list[i].AudioPath)
	}
	return list
}

// saveUpload stores the named form file when present.
func (h *ReportHandler) saveUpload(c echo.Context, field string, kind storage.Kind) (*string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Validation("invalid " + field)
	}
	return h.save(field, kind, fh)
}

func (h *ReportHandler) save(field string, kind storage.Kind, fh *multipart.FileHeader) (*string, error) {
	rel, err := h.Files.Save(kind, fh)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return nil, apperror.Validation(field + " is too large")
	case errors.Is(err, storage.ErrUnsupportedType):
		return nil, apperror.Validation(field + " has an unsupported file type")
	case err != nil:
		return nil, apperror.Internal("upload failed", err)
	}
	return &rel, nil
}

// discard removes attachments saved for a report that was not stored.
func (h *ReportHandler) discard(paths ...*string) {
	for _, p := range paths {
		if p == nil {
			continue
		}
		if err := h.Files.Remove(*p); err != nil {
			h.Log.Warn().Err(err).Str("path", *p).Msg("remove upload")
		}
	}
}

// Create files a report for an order on behalf of the caller.
func (h *ReportHandler) Create(c echo.Context) error {
	orderID, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("orderId")), 10, 64)
	if err != nil || orderID <= 0 {
		return apperror.Validation("orderId is required")
	}
	desc := sanitize(c.FormValue("description"))
	if desc == "" {
		return apperror.Validation("description is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Orders.Get(ctx, orderID); err != nil {
		return storeErr(err, "order")
	}
	photo, err := h.saveUpload(c, "photo", storage.KindImage)
	if err != nil {
		return err
	}
	audio, err := h.saveUpload(c, "audioNote", storage.KindAudio)
	if err != nil {
		h.discard(photo)
		return err
	}

	rep := &model.Report{
		OrderID:     orderID,
		GuardID:     middleware.CurrentUserID(c),
		Description: desc,
		PhotoPath:   photo,
		AudioPath:   audio,
	}
	if err := h.Reports.Create(ctx, rep); err != nil {
		h.discard(photo, audio)
		return storeErr(err, "report")
	}
	rep.PhotoPath = storage.NormalizePtr(rep.PhotoPath)
	rep.AudioPath = storage.NormalizePtr(rep.AudioPath)
	return c.JSON(http.StatusCreated, rep)
}

// List returns the reports of ?orderId, or without it the caller's reports.
func (h *ReportHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	var (
		list []model.Report
		err  error
	)
	if v := strings.TrimSpace(c.QueryParam("orderId")); v != "" {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || id <= 0 {
			return apperror.Validation("invalid orderId")
		}
		list, err = h.Reports.ListByOrder(ctx, id)
	} else {
		list, err = h.Reports.ListForProfile(ctx, middleware.CurrentUserID(c))
	}
	if err != nil {
		return storeErr(err, "report")
	}
	return c.JSON(http.StatusOK, normalizeReports(list))
}

// All returns every report.
func (h *ReportHandler) All(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	list, err := h.Reports.ListAll(ctx)
	if err != nil {
		return storeErr(err, "report")
	}
	return c.JSON(http.StatusOK, normalizeReports(list))
}
