package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stargallery/service/internal/image"
	"github.com/stargallery/service/internal/response"
	"github.com/stargallery/service/internal/star"
	"github.com/stargallery/service/internal/storage"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 32 << 20

// FilesField is the multipart field carrying the uploaded files.
const FilesField = "files"

// Service is the orchestration the handler exposes. *Orchestrator implements it.
type Service interface {
	UploadBatch(ctx context.Context, starID string, files []Upload) ([]image.Image, error)
	ListImages(ctx context.Context, starID string, page, limit int) ([]image.Image, error)
	GetImage(ctx context.Context, imageID string) (*image.Image, error)
	DeleteImage(ctx context.Context, imageID string) error
}

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	svc             Service
	maxRequestBytes int64
	log             zerolog.Logger
}

// NewHandler creates a new image Handler. maxRequestBytes caps the whole
// multipart upload body.
func NewHandler(svc Service, maxRequestBytes int64, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, maxRequestBytes: maxRequestBytes, log: logger}
}

// Upload godoc
//
//	@Summary		Upload images
//	@Description	Upload one or more images to a star. Files are processed concurrently; the first failing file fails the request.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			starID	path		string	true	"Star ID"
//	@Param			files	formData	file	true	"Image files (repeat the field for several files)"
//	@Success		201		{array}		image.Image
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		502		{object}	response.ErrorBody
//	@Failure		503		{object}	response.ErrorBody
//	@Router			/stars/{starID}/images/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	starID, ok := pathID(w, r, "starID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File[FilesField]
	if len(headers) == 0 {
		response.BadRequest(w, ErrNoFiles.Error())
		return
	}

	files := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			h.log.Error().Err(err).Str("filename", fh.Filename).Msg("read multipart file")
			response.BadRequest(w, "could not read file "+fh.Filename)
			return
		}
		files = append(files, u)
	}

	images, err := h.svc.UploadBatch(r.Context(), starID, files)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, images)
}

// List godoc
//
//	@Summary		List a star's images
//	@Description	Returns a page of images, newest first.
//	@Tags			images
//	@Produce		json
//	@Param			starID	path		string	true	"Star ID"
//	@Param			page	query		int		false	"Page number, starting at 1"	default(1)
//	@Param			limit	query		int		false	"Page size, at most 100"		default(20)
//	@Success		200		{array}		image.Image
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Router			/stars/{starID}/images [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	starID, ok := pathID(w, r, "starID")
	if !ok {
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		response.BadRequest(w, "page must be an integer")
		return
	}
	limit, err := queryInt(r, "limit", DefaultPageSize)
	if err != nil {
		response.BadRequest(w, "limit must be an integer")
		return
	}

	images, err := h.svc.ListImages(r.Context(), starID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, images)
}

// Get godoc
//
//	@Summary	Get an image
//	@Tags		images
//	@Produce	json
//	@Param		imageID	path		string	true	"Image ID"
//	@Success	200		{object}	image.Image
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Router		/stars/images/{imageID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	imageID, ok := pathID(w, r, "imageID")
	if !ok {
		return
	}

	img, err := h.svc.GetImage(r.Context(), imageID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, img)
}

// Delete godoc
//
//	@Summary		Delete an image
//	@Description	Deletes the image record. Removal of the stored object is best-effort.
//	@Tags			images
//	@Param			imageID	path	string	true	"Image ID"
//	@Success		204
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Security		BearerAuth
//	@Router			/stars/images/{imageID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	imageID, ok := pathID(w, r, "imageID")
	if !ok {
		return
	}

	if err := h.svc.DeleteImage(r.Context(), imageID); err != nil {
		h.writeError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, star.ErrNotFound), errors.Is(err, image.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrInvalidMediaType), errors.Is(err, ErrPayloadTooLarge), errors.Is(err, ErrNoFiles):
		response.BadRequest(w, err.Error())
	case errors.Is(err, storage.ErrStorageUnavailable):
		response.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrUploadFailed):
		h.log.Error().Err(err).Msg("upload failed")
		response.Error(w, http.StatusBadGateway, "upload to object storage failed")
	default:
		h.log.Error().Err(err).Msg("image request failed")
		response.InternalError(w)
	}
}

func readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// pathID reads a UUID path parameter, writing a 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(w, "invalid "+name)
		return "", false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
