// Package profile_usecase resolves account avatar and cover image targets
// from chain profiles.
package profile_usecase

import (
	"context"
	"net/url"
	"strings"

	"imagehoster/domain"
	"imagehoster/port/chain_port"
	"imagehoster/utils/logger"
)

// ProfileUsecase turns a username into the remote URL the proxy pipeline
// should render.
type ProfileUsecase struct {
	accounts      chain_port.AccountReader
	serviceURL    *url.URL
	defaultAvatar string
	defaultCover  string
	fallbackURL   *url.URL
}

// NewProfileUsecase creates the profile usecase. The default avatar also
// serves as the fallback for unparseable profile URLs.
func NewProfileUsecase(accounts chain_port.AccountReader, serviceURL *url.URL, defaultAvatar, defaultCover string) *ProfileUsecase {
	fallback, err := url.Parse(defaultAvatar)
	if err != nil {
		fallback = &url.URL{Scheme: "https", Host: "images.hive.blog"}
	}
	return &ProfileUsecase{
		accounts:      accounts,
		serviceURL:    serviceURL,
		defaultAvatar: defaultAvatar,
		defaultCover:  defaultCover,
		fallbackURL:   fallback,
	}
}

// AvatarTarget resolves the avatar image URL for an account.
func (u *ProfileUsecase) AvatarTarget(ctx context.Context, username string) (*url.URL, error) {
	return u.target(ctx, username, func(p *domain.Profile) string {
		return p.Metadata.Profile.ProfileImage
	}, u.defaultAvatar)
}

// CoverTarget resolves the cover image URL for an account.
func (u *ProfileUsecase) CoverTarget(ctx context.Context, username string) (*url.URL, error) {
	return u.target(ctx, username, func(p *domain.Profile) string {
		return p.Metadata.Profile.CoverImage
	}, u.defaultCover)
}

func (u *ProfileUsecase) target(ctx context.Context, username string, pick func(*domain.Profile) string, defaultURL string) (*url.URL, error) {
	if err := domain.ValidateAccountName(username); err != nil {
		return nil, err
	}
	profile, err := u.accounts.GetProfile(ctx, username)
	if err != nil {
		return nil, domain.WrapError(domain.KindUpstreamError, err)
	}
	if profile == nil {
		return nil, domain.ErrorWithInfo(domain.KindNoSuchAccount, map[string]any{"account": username})
	}

	raw := strings.TrimSpace(pick(profile))
	if raw == "" || domain.IsEmptyImageURL(raw, u.serviceURL) {
		raw = defaultURL
	} else if domain.StartsWithEmptyImagePrefix(raw, u.serviceURL) {
		// "{service}/0x0/<url>" marks an unproxied original.
		base := strings.TrimRight(u.serviceURL.String(), "/")
		raw = strings.TrimPrefix(raw, base+"/0x0/")
	}

	target, err := url.Parse(raw)
	if err != nil || !target.IsAbs() || target.Host == "" {
		logger.SafeWarnContext(ctx, "unusable profile image url", "account", username, "url", raw)
		target, err = url.Parse(defaultURL)
		if err != nil {
			return nil, domain.WrapError(domain.KindInternalError, err)
		}
	}

	return domain.UnwrapProxiedURL(target, u.serviceURL, u.fallbackURL), nil
}
