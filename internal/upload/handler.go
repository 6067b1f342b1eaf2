package upload

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mediagate/uploader/internal/auth"
	"github.com/mediagate/uploader/internal/middleware"
	"github.com/mediagate/uploader/internal/response"
)

// FileField is the multipart field carrying the uploaded file on both
// upload endpoints.
const FileField = "image"

// PreserveHeader asks for a preserved copy and a webhook notification.
const PreserveHeader = "preserve"

// maxFieldBytes bounds each plain form value.
const maxFieldBytes = 64 << 10

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers for the upload endpoints.
type Handler struct {
	svc      *Service
	db       Pinger
	maxBytes int64
	log      zerolog.Logger
}

// NewHandler creates a new upload Handler. Request bodies larger than
// maxBytes are rejected with 413.
func NewHandler(svc *Service, db Pinger, maxBytes int64, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		db:       db,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "http").Logger(),
	}
}

// Register mounts the upload routes on r. requireAuth guards the client
// config endpoint; the upload endpoints authenticate inside the pipeline so
// that an empty payload is reported before a bad credential.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/file", h.UploadFile)
	r.Post("/audio", h.UploadAudio)
	r.Get("/file/{file_name}", h.DeleteFile)
	r.With(requireAuth).Post("/config", h.Config)
}

type deleteData struct {
	Delete string `json:"delete" example:"OK"`
}

type healthData struct {
	Status string `json:"status" example:"ok"`
}

// UploadFile godoc
//
//	@Summary		Upload an image or video
//	@Description	Store the file under a fresh random name in the caller's namespace. With the preserve header set, a copy survives deletion and is forwarded to the webhook.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			image		formData	file	true	"File to upload"
//	@Param			preserve	header		bool	false	"Keep a preserved copy"
//	@Success		201			{object}	ImageResult
//	@Failure		400			{object}	response.ErrorBody
//	@Failure		401			{object}	response.ErrorBody
//	@Failure		409			{object}	response.ErrorBody
//	@Failure		413			{object}	response.ErrorBody
//	@Failure		500			{object}	response.ErrorBody
//	@Router			/file [post]
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	credential := bearer(r)
	form, err := h.readForm(w, r, credential)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	preserve, _ := strconv.ParseBool(r.Header.Get(PreserveHeader))
	result, err := h.svc.UploadImage(r.Context(), ImageUpload{
		Credential:  credential,
		ContentType: form.contentType,
		Data:        form.data,
		Preserve:    preserve,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, result)
}

// UploadAudio godoc
//
//	@Summary		Upload an audio file
//	@Description	Store the audio under a fresh random name in the shared audio namespace.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			image				formData	file	true	"Audio file"
//	@Param			title				formData	string	false	"Title"
//	@Param			soundgasm_author	formData	string	false	"Original author"
//	@Success		201					{object}	AudioResult
//	@Failure		400					{object}	response.ErrorBody
//	@Failure		401					{object}	response.ErrorBody
//	@Failure		413					{object}	response.ErrorBody
//	@Failure		500					{object}	response.ErrorBody
//	@Router			/audio [post]
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	credential := bearer(r)
	form, err := h.readForm(w, r, credential)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.UploadAudio(r.Context(), AudioUpload{
		Credential:      credential,
		ContentType:     form.contentType,
		Data:            form.data,
		Title:           form.values["title"],
		SoundgasmAuthor: form.values["soundgasm_author"],
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, result)
}

// DeleteFile godoc
//
//	@Summary		Delete an upload
//	@Description	Delete the upload identified by its deletion token. The token only works together with the id of the user who uploaded it.
//	@Tags			upload
//	@Produce		json
//	@Param			file_name	path		string	true	"Deletion token"
//	@Param			user_id		query		int		true	"Uploader id"
//	@Success		200			{object}	deleteData
//	@Failure		401			{object}	response.ErrorBody
//	@Failure		500			{object}	response.ErrorBody
//	@Router			/file/{file_name} [get]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		response.Unauthorized(w)
		return
	}

	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "file_name"), userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, deleteData{Delete: "OK"})
}

// Config godoc
//
//	@Summary		Get uploader config
//	@Description	Return a ShareX custom uploader definition for the authenticated user.
//	@Tags			upload
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ClientConfig
//	@Failure		401	{object}	response.ErrorBody
//	@Router			/config [post]
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Unauthorized(w)
		return
	}
	response.OK(w, h.svc.ClientConfig(u))
}

// Health godoc
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	healthData
//	@Failure	503	{object}	response.ErrorBody
//	@Router		/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("health check: database unreachable")
		response.Unavailable(w, "database unreachable")
		return
	}
	response.OK(w, healthData{Status: "ok"})
}

// uploadForm is the streamed content of an upload request.
type uploadForm struct {
	data        []byte
	contentType string
	values      map[string]string
}

// readForm streams the multipart body. The file part is checked for at least
// one byte, then the credential is verified before the rest of it is read,
// so an anonymous client cannot make the server buffer a whole upload. A
// request without a usable file part yields empty data for the pipeline to
// reject.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request, credential string) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	form := &uploadForm{values: make(map[string]string)}

	mr, err := r.MultipartReader()
	if err != nil {
		return form, nil
	}

	found := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return form, nil
		}

		switch {
		case part.FormName() == FileField && !found:
			found = true
			form.contentType = part.Header.Get("Content-Type")
			if form.data, err = h.readFile(part, credential); err != nil {
				return nil, err
			}
		case part.FileName() == "":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				return nil, err
			}
			form.values[part.FormName()] = string(value)
		}
		part.Close()
	}
}

// readFile returns nil for an empty part and ErrUnauthorized for a bad
// credential, having read only the first buffer of the part.
func (h *Handler) readFile(part io.Reader, credential string) ([]byte, error) {
	br := bufio.NewReader(part)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := h.svc.Authenticate(credential); err != nil {
		return nil, ErrUnauthorized
	}
	return io.ReadAll(br)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrEmptyData):
		response.BadRequest(w, "Empty data")
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(w)
	case errors.Is(err, ErrUnknownContentType):
		response.BadRequest(w, "Unknown content type")
	case errors.Is(err, ErrConflict):
		response.Conflict(w, "Filename conflict")
	case errors.As(err, &tooLarge):
		response.TooLarge(w)
	default:
		h.log.Error().Err(err).Str("route", routePattern(r)).Msg("request failed")
		response.InternalError(w)
	}
}

func bearer(r *http.Request) string {
	credential, _ := auth.ExtractBearer(r.Header.Get("Authorization"))
	return credential
}

// routePattern keeps deletion tokens out of the logs.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.Method
}
