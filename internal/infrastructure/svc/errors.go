package svc

import "errors"

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")

// ErrUnknownBackend 错误：不支持的 storage.backend
var ErrUnknownBackend = errors.New("unknown storage backend")
