package di

import (
	"fmt"

	"imagehoster/config"
	"imagehoster/driver/blobstore"
	"imagehoster/driver/chain"
	"imagehoster/driver/cloudflare"
	"imagehoster/driver/rediskv"
	"imagehoster/gateway/blacklist_gateway"
	"imagehoster/gateway/fetch_gateway"
	"imagehoster/gateway/processing_gateway"
	"imagehoster/gateway/quota_gateway"
	"imagehoster/port/quota_port"
	"imagehoster/port/store_port"
	"imagehoster/usecase/profile_usecase"
	"imagehoster/usecase/proxy_usecase"
	"imagehoster/usecase/serve_usecase"
	"imagehoster/usecase/upload_usecase"
	"imagehoster/utils/logger"
	"imagehoster/utils/rate_limiter"
)

type ApplicationComponents struct {
	UploadStore store_port.BlobStore
	ProxyStore  store_port.BlobStore
	Blacklist   *blacklist_gateway.BlacklistGateway
	ChainClient *chain.Client

	ProxyUsecase   *proxy_usecase.ProxyUsecase
	UploadUsecase  *upload_usecase.UploadUsecase
	ServeUsecase   *serve_usecase.ServeUsecase
	ProfileUsecase *profile_usecase.ProfileUsecase
}

func NewApplicationComponents(cfg *config.Config) (*ApplicationComponents, error) {
	uploadStore, err := blobstore.Open(cfg.UploadStore.Type, cfg.UploadStore.Path, cfg.UploadStore.S3Bucket, cfg.UploadStore.S3Region)
	if err != nil {
		return nil, fmt.Errorf("open upload store: %w", err)
	}
	proxyStore, err := blobstore.Open(cfg.ProxyStore.Type, cfg.ProxyStore.Path, cfg.ProxyStore.S3Bucket, cfg.ProxyStore.S3Region)
	if err != nil {
		return nil, fmt.Errorf("open proxy store: %w", err)
	}

	chainClient := chain.NewClient(cfg.RPC.Nodes, cfg.RPC.Timeout, cfg.RPC.FailoverThreshold)

	hostLimiter := rate_limiter.NewHostRateLimiter(cfg.Fetch.HostInterval)
	fetcher := fetch_gateway.NewFetchGateway(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, hostLimiter)

	processor := processing_gateway.NewProcessingGateway(fetcher, processing_gateway.Limits{
		MaxWidth:        cfg.ProxyStore.MaxImageWidth,
		MaxHeight:       cfg.ProxyStore.MaxImageHeight,
		MaxCustomWidth:  cfg.ProxyStore.MaxCustomImageWidth,
		MaxCustomHeight: cfg.ProxyStore.MaxCustomImageHeight,
	})

	blacklist := blacklist_gateway.NewBlacklistGateway(
		cfg.Blacklist.SeedFile,
		cfg.Blacklist.ImagesURL,
		cfg.Blacklist.AccountsURL,
		cfg.Blacklist.CacheTTL,
	)

	var quota quota_port.UploadQuota
	if cfg.Redis.URL != "" {
		quotaDriver, err := rediskv.NewQuotaDriverWithURL(cfg.Redis.URL)
		if err != nil {
			// The limiter is a secondary defense; start degraded rather
			// than refuse to boot.
			logger.Logger.Warn("redis unavailable, upload quota disabled", "error", err)
		} else {
			quota = quota_gateway.NewQuotaGateway(quotaDriver, cfg.UploadLimits.Duration, cfg.UploadLimits.Max)
		}
	}

	purger := cloudflare.NewPurger(cfg.Cloudflare.Token, cfg.Cloudflare.Zone)

	serviceURL := cfg.ServiceURL()

	proxyUsecase := proxy_usecase.NewProxyUsecase(
		proxyStore,
		fetcher,
		processor,
		blacklist,
		purger,
		cfg.Service.DefaultAvatar,
		cfg.Service.MaxImageSize,
	)

	uploadUsecase := upload_usecase.NewUploadUsecase(
		uploadStore,
		chainClient,
		blacklist,
		quota,
		serviceURL,
		cfg.UploadLimits.AppAccount,
		cfg.UploadLimits.AppPostingWif,
		cfg.UploadLimits.Reputation,
	)

	serveUsecase := serve_usecase.NewServeUsecase(uploadStore)
	profileUsecase := profile_usecase.NewProfileUsecase(chainClient, serviceURL, cfg.Service.DefaultAvatar, cfg.Service.DefaultCover)

	return &ApplicationComponents{
		UploadStore:    uploadStore,
		ProxyStore:     proxyStore,
		Blacklist:      blacklist,
		ChainClient:    chainClient,
		ProxyUsecase:   proxyUsecase,
		UploadUsecase:  uploadUsecase,
		ServeUsecase:   serveUsecase,
		ProfileUsecase: profileUsecase,
	}, nil
}
