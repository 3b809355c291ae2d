package config

import "errors"

var (
	ErrMissingBackendURL     = errors.New("backend URL is required (set BACKEND_URL env var or --backend-url flag)")
	ErrInvalidBackendURL     = errors.New("backend URL must be an absolute http(s) URL")
	ErrMissingVideoDomain    = errors.New("video domain is required (set VIDEO_DOMAIN env var or --video-domain flag)")
	ErrInvalidPeerLeftPolicy = errors.New("peer-left policy must be one of notify, complete")
	ErrInvalidTimeout        = errors.New("widget ready timeout must be positive")
)
