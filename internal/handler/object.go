package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"ChunkVault/internal/dto"
	"ChunkVault/internal/errs"
	"ChunkVault/internal/service"
	"ChunkVault/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	uploadField  = "file"
	noFilesExist = "no files exist"
)

var errNoFilePart = errors.New("multipart field \"file\" is required")

// ObjectHandler serves the object store over HTTP.
type ObjectHandler struct {
	svc *service.ObjectService
}

func NewObjectHandler(svc *service.ObjectService) *ObjectHandler {
	return &ObjectHandler{svc: svc}
}

// statusOf maps store errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, errs.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFilePart), errors.Is(err, http.ErrNotMultipart), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusNotFound {
		_ = c.Error(err)
		utils.FailMsg(c, status, noFilesExist)
		return
	}
	utils.Fail(c, status, err)
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// Index lists every object with presentation defaults applied.
func (h *ObjectHandler) Index(c *gin.Context) {
	records, err := h.svc.ListObjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, dto.NewIndexResponse(records))
}

// Upload stores the multipart "file" part. Form fields sent before the
// file become its metadata.
func (h *ObjectHandler) Upload(c *gin.Context) {
	reader, err := c.Request.MultipartReader()
	if err != nil {
		fail(c, err)
		return
	}
	fields := make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			fail(c, errNoFilePart)
			return
		}
		if err != nil {
			utils.Fail(c, http.StatusBadRequest, err)
			return
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			h.storePart(c, part, fields)
			_ = part.Close()
			return
		}
		if part.FormName() != "" {
			value, err := io.ReadAll(io.LimitReader(part, 1<<20))
			if err != nil {
				utils.Fail(c, http.StatusBadRequest, err)
				return
			}
			fields[part.FormName()] = string(value)
		}
		_ = part.Close()
	}
}

func (h *ObjectHandler) storePart(c *gin.Context, part *multipart.Part, fields map[string]string) {
	record, err := h.svc.UploadObject(c.Request.Context(), service.UploadRequest{
		Reader:      part,
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Fields:      fields,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if wantsJSON(c) {
		c.JSON(http.StatusCreated, dto.UploadResponse{
			Filename:    record.Name,
			ContentType: record.ContentType,
			Length:      record.Length,
		})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// ListFiles returns every record, or 404 when the store is empty.
func (h *ObjectHandler) ListFiles(c *gin.Context) {
	records, err := h.svc.ListObjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if len(records) == 0 {
		utils.FailMsg(c, http.StatusNotFound, noFilesExist)
		return
	}
	utils.Success(c, records)
}

// GetFile returns one record.
func (h *ObjectHandler) GetFile(c *gin.Context) {
	record, err := h.svc.GetObjectByName(c.Request.Context(), c.Param("filename"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, record)
}

// StreamImage writes the object content with its recorded content type.
func (h *ObjectHandler) StreamImage(c *gin.Context) {
	name := c.Param("filename")
	stream, err := h.svc.StreamObjectByName(c.Request.Context(), name)
	if err != nil {
		fail(c, err)
		return
	}
	record := stream.Record
	c.Header("Content-Type", record.ContentType)
	c.Header("Content-Length", fmt.Sprintf("%d", record.Length))
	c.Header("Content-Disposition", utils.ContentDisposition(record.Name, c.Query("download") == ""))
	if record.Checksum != "" {
		c.Header("X-Object-Checksum", record.Checksum)
	}
	c.Status(http.StatusOK)

	if _, err := stream.PipeTo(c.Writer); err != nil {
		// headers are already sent; the client sees a short body
		_ = c.Error(err)
		log.Error().Err(err).Str("object", name).Msg("stream object failed")
	}
}

// DeleteForm removes an object and redirects back to the listing.
func (h *ObjectHandler) DeleteForm(c *gin.Context) {
	if err := h.svc.DeleteObject(c.Request.Context(), c.Param("name")); err != nil {
		utils.Fail(c, statusOf(err), err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Delete removes an object.
func (h *ObjectHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteObject(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Health reports whether the store is open.
func (h *ObjectHandler) Health(c *gin.Context) {
	if !h.svc.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
