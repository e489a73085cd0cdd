package rest

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"imagehoster/domain"
)

const (
	defaultAvatarSize = 128
	coverWidth        = 1344
	coverHeight       = 240
)

// avatarSizeAliases are the documented named sizes.
var avatarSizeAliases = map[string]int{
	"small":  64,
	"medium": 128,
	"large":  512,
}

// Avatar handles GET /u/:username/avatar/:size?.
func (h *Handler) Avatar(c echo.Context) error {
	size, err := parseAvatarSize(c.Param("size"))
	if err != nil {
		return respondError(c, err)
	}

	target, err := h.profile.AvatarTarget(c.Request().Context(), c.Param("username"))
	if err != nil {
		return respondError(c, err)
	}

	opts := domain.TransformOptions{
		Width:  size,
		Height: size,
		Mode:   domain.ModeCover,
		Format: negotiateWebP(domain.FormatMatch, c.Request().Header.Get(echo.HeaderAccept)),
	}
	return h.renderProxied(c, target, opts)
}

// Cover handles GET /u/:username/cover.
func (h *Handler) Cover(c echo.Context) error {
	target, err := h.profile.CoverTarget(c.Request().Context(), c.Param("username"))
	if err != nil {
		return respondError(c, err)
	}

	opts := domain.TransformOptions{
		Width:  coverWidth,
		Height: coverHeight,
		Mode:   domain.ModeFit,
		Format: negotiateFormat(domain.FormatMatch, c.Request().Header.Get(echo.HeaderAccept)),
	}
	return h.renderProxied(c, target, opts)
}

func parseAvatarSize(s string) (int, error) {
	if s == "" {
		return defaultAvatarSize, nil
	}
	if size, ok := avatarSizeAliases[s]; ok {
		return size, nil
	}
	size, err := strconv.Atoi(s)
	if err != nil || size <= 0 {
		return 0, domain.ErrorWithInfo(domain.KindInvalidParam, map[string]any{"param": "size", "value": s})
	}
	return size, nil
}
