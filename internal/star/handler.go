package star

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stargallery/service/internal/response"
)

// Handler holds HTTP handlers for star endpoints.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

// NewHandler creates a new star Handler.
func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: logger}
}

type nameRequest struct {
	Name string `json:"name" example:"IU"`
}

// List godoc
//
//	@Summary		List stars
//	@Description	Returns up to 1000 stars, newest first. search filters by a case-insensitive substring of the name.
//	@Tags			stars
//	@Produce		json
//	@Param			search	query		string	false	"Name substring"
//	@Success		200		{array}		Star
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/stars [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	stars, err := h.svc.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, stars)
}

// Create godoc
//
//	@Summary	Create a star
//	@Tags		stars
//	@Accept		json
//	@Produce	json
//	@Param		request	body		nameRequest	true	"Star name"
//	@Success	201		{object}	Star
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/stars [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	st, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, st)
}

// Get godoc
//
//	@Summary	Get a star
//	@Tags		stars
//	@Produce	json
//	@Param		starID	path		string	true	"Star ID"
//	@Success	200		{object}	Star
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Router		/stars/{starID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := starID(w, r)
	if !ok {
		return
	}

	st, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, st)
}

// Rename godoc
//
//	@Summary	Rename a star
//	@Tags		stars
//	@Accept		json
//	@Produce	json
//	@Param		starID	path		string		true	"Star ID"
//	@Param		request	body		nameRequest	true	"New name"
//	@Success	200		{object}	Star
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/stars/{starID} [put]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := starID(w, r)
	if !ok {
		return
	}

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	st, err := h.svc.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, st)
}

// Delete godoc
//
//	@Summary		Delete a star
//	@Description	Deletes the star and all of its images. Removal of stored objects is best-effort.
//	@Tags			stars
//	@Param			starID	path	string	true	"Star ID"
//	@Success		204
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Security		BearerAuth
//	@Router			/stars/{starID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := starID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrInvalidName):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error().Err(err).Msg("star request failed")
		response.InternalError(w)
	}
}

func starID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "starID")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(w, "invalid starID")
		return "", false
	}
	return id, true
}
