// Package rest wires the HTTP surface: route registration, parameter
// parsing, and response shaping around the usecases.
package rest

import (
	"net/url"

	"imagehoster/config"
	"imagehoster/di"
	"imagehoster/usecase/profile_usecase"
	"imagehoster/usecase/proxy_usecase"
	"imagehoster/usecase/serve_usecase"
	"imagehoster/usecase/upload_usecase"
)

// Handler carries the usecases behind the endpoint families.
type Handler struct {
	cfg     *config.Config
	proxy   *proxy_usecase.ProxyUsecase
	upload  *upload_usecase.UploadUsecase
	serve   *serve_usecase.ServeUsecase
	profile *profile_usecase.ProfileUsecase

	serviceURL  *url.URL
	fallbackURL *url.URL
}

// NewHandler creates the handler set from the DI container.
func NewHandler(container *di.ApplicationComponents, cfg *config.Config) *Handler {
	fallback, err := url.Parse(cfg.Service.DefaultAvatar)
	if err != nil {
		fallback = &url.URL{Scheme: "https", Host: "images.hive.blog"}
	}
	return &Handler{
		cfg:         cfg,
		proxy:       container.ProxyUsecase,
		upload:      container.UploadUsecase,
		serve:       container.ServeUsecase,
		profile:     container.ProfileUsecase,
		serviceURL:  cfg.ServiceURL(),
		fallbackURL: fallback,
	}
}
