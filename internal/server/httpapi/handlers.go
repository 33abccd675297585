package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/models"
	"github.com/dmitrijs2005/tenantdrive/internal/server/services"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	uploads *services.UploadService
	trash   *services.TrashService
	files   *services.FileService
	logger  logging.Logger
}

type startRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	UserID      string `json:"userId"`
}

type partURLRequest struct {
	FileID     string `json:"fileId"`
	PartNumber int    `json:"partNumber"`
	Sha1       string `json:"sha1"`
}

type finishRequest struct {
	FileID        string   `json:"fileId"`
	PartSha1Array []string `json:"partSha1Array"`
	FileName      string   `json:"fileName"`
	FileSize      *int64   `json:"fileSize"`
	ContentType   string   `json:"contentType"`
	FolderID      string   `json:"folderId"`
	UserID        string   `json:"userId"`
}

type cancelRequest struct {
	FileID string `json:"fileId"`
}

type finishResponse struct {
	Success  bool         `json:"success"`
	File     *models.File `json:"file"`
	B2FileID string       `json:"b2FileId"`
}

type cancelResponse struct {
	Success   bool `json:"success"`
	Cancelled bool `json:"cancelled"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	TrashID string `json:"trash_id,omitempty"`
}

type downloadResponse struct {
	Success            bool   `json:"success"`
	DownloadURL        string `json:"downloadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

type trashResponse struct {
	Success bool                  `json:"success"`
	Items   []*models.DeletedItem `json:"items"`
}

// restoreResponse reports restored_to as null for the tenant root.
type restoreResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	RestoredTo *string `json:"restored_to"`
}

func bind(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return common.Invalid("body", "is not valid JSON")
	}
	return nil
}

func (h *Handler) GetUploadURL(c echo.Context) error {
	target, err := h.uploads.GetUploadURL(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, target)
}

func (h *Handler) StartLargeFile(c echo.Context) error {
	var req startRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	userID, err := actingUser(c, req.UserID)
	if err != nil {
		return err
	}

	lf, err := h.uploads.StartLargeFile(c.Request().Context(), req.FileName, req.ContentType, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lf)
}

func (h *Handler) GetUploadPartURL(c echo.Context) error {
	var req partURLRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	target, err := h.uploads.GetUploadPartURL(c.Request().Context(), req.FileID, req.PartNumber, req.Sha1)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, target)
}

func (h *Handler) FinishLargeFile(c echo.Context) error {
	var req finishRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	userID, err := actingUser(c, req.UserID)
	if err != nil {
		return err
	}

	res, err := h.uploads.FinishLargeFile(c.Request().Context(), services.FinishRequest{
		FileID:        req.FileID,
		PartSha1Array: req.PartSha1Array,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		ContentType:   req.ContentType,
		FolderID:      req.FolderID,
		UserID:        userID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, finishResponse{Success: true, File: res.File, B2FileID: res.B2FileID})
}

func (h *Handler) CancelLargeFile(c echo.Context) error {
	var req cancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cancelled, err := h.uploads.CancelLargeFile(c.Request().Context(), req.FileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cancelResponse{Success: true, Cancelled: cancelled})
}

func (h *Handler) DeleteFile(c echo.Context) error {
	userID, err := actingUser(c, c.QueryParam("userId"))
	if err != nil {
		return err
	}

	item, err := h.trash.SoftDeleteFile(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Success: true, TrashID: item.ID})
}

func (h *Handler) DownloadFile(c echo.Context) error {
	userID, err := actingUser(c, c.QueryParam("userId"))
	if err != nil {
		return err
	}

	auth, err := h.files.GetDownloadAuthorization(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, downloadResponse{
		Success:            true,
		DownloadURL:        auth.DownloadURL,
		AuthorizationToken: auth.AuthorizationToken,
	})
}

func (h *Handler) DeleteFolder(c echo.Context) error {
	userID, err := actingUser(c, c.QueryParam("userId"))
	if err != nil {
		return err
	}

	if err := h.trash.RemoveFolder(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Success: true})
}

func (h *Handler) ListTrash(c echo.Context) error {
	userID, err := actingUser(c, c.QueryParam("userId"))
	if err != nil {
		return err
	}

	items, err := h.trash.ListTrash(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*models.DeletedItem{}
	}
	return c.JSON(http.StatusOK, trashResponse{Success: true, Items: items})
}

func (h *Handler) RestoreItem(c echo.Context) error {
	userID, err := actingUser(c, c.QueryParam("userId"))
	if err != nil {
		return err
	}

	res, err := h.trash.Restore(c.Request().Context(), userID, c.Param("id"), c.QueryParam("destination"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, restoreResponse{
		Success:    true,
		Message:    "Item restored",
		RestoredTo: res.RestoredTo.FolderID(),
	})
}
