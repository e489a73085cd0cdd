package rest

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"imagehoster/domain"
	"imagehoster/usecase/upload_usecase"
)

// Upload handles POST /:username/:signature.
func (h *Handler) Upload(c echo.Context) error {
	return h.handleUpload(c, upload_usecase.Request{
		Username:  c.Param("username"),
		Signature: c.Param("signature"),
	})
}

// UploadWithToken handles POST /hs/:token.
func (h *Handler) UploadWithToken(c echo.Context) error {
	return h.handleUpload(c, upload_usecase.Request{
		Token: c.Param("token"),
	})
}

func (h *Handler) handleUpload(c echo.Context, req upload_usecase.Request) error {
	r := c.Request()
	maxSize := int64(h.cfg.Service.MaxImageSize)

	if r.ContentLength < 0 {
		return respondError(c, domain.NewError(domain.KindLengthRequired))
	}
	if r.ContentLength > maxSize {
		return respondError(c, domain.ErrorWithInfo(domain.KindPayloadTooLarge, map[string]any{
			"max_size": maxSize,
		}))
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return respondError(c, domain.WrapError(domain.KindFileMissing, err))
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return respondError(c, domain.WrapError(domain.KindFileMissing, err))
		}
		if part.FileName() == "" {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, maxSize+1))
		part.Close()
		if err != nil {
			return respondError(c, domain.WrapError(domain.KindBadRequest, err))
		}
		if int64(len(data)) > maxSize {
			return respondError(c, domain.ErrorWithInfo(domain.KindPayloadTooLarge, map[string]any{
				"max_size": maxSize,
			}))
		}
		req.Filename = part.FileName()
		req.Data = data
		break
	}
	if len(req.Data) == 0 {
		return respondError(c, domain.NewError(domain.KindFileMissing))
	}

	res, err := h.upload.Upload(r.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
