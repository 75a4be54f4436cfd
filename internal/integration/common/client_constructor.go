package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgHTTP "github.com/futig/rag-backend/pkg/http"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var defaultBaseURLs = map[string]string{
	config.ProviderOpenAI:   "https://api.openai.com/v1",
	config.ProviderDeepSeek: "https://api.deepseek.com/v1",
}

// BaseURL returns the configured service root or the public endpoint of a known provider
func BaseURL(provider string, cfg config.HTTPClientConfig) string {
	if cfg.Url != "" {
		return cfg.Url
	}
	return defaultBaseURLs[provider]
}

func NewBaseConnector(provider string, cfg config.HTTPClientConfig) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		BaseURL: BaseURL(provider, cfg),
	}

	return pkgHTTP.NewConnector(
		connCfg,
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.Token),
	)
}

// ClassifyHTTPError maps a connector error onto a provider category.
// Retryable statuses and network failures stay transient, the rest become permanent.
func ClassifyHTTPError(category error, op string, err error) error {
	if err == nil {
		return nil
	}

	var httpErr *pkgHTTP.HTTPError
	if errors.As(err, &httpErr) && !httpErr.Retryable() {
		if httpErr.StatusCode == http.StatusRequestEntityTooLarge || isContextLengthMessage(httpErr.Message) {
			return fmt.Errorf("%w: %s: %v", entity.ErrInputTooLarge, op, err)
		}
		return entity.Permanent(fmt.Errorf("%w: %s: %v", category, op, err))
	}

	return fmt.Errorf("%w: %s: %v", category, op, err)
}

func isContextLengthMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "maximum context length") || strings.Contains(msg, "input is too long")
}

// ClassifyGoogleError does for Google API errors what ClassifyHTTPError does for plain HTTP ones
func ClassifyGoogleError(category error, op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return ClassifyHTTPError(category, op, &pkgHTTP.HTTPError{StatusCode: apiErr.Code, Message: apiErr.Message})
	}

	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		switch grpcErr.GRPCStatus().Code() {
		case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound:
			return ClassifyHTTPError(category, op, &pkgHTTP.HTTPError{StatusCode: http.StatusBadRequest, Message: err.Error()})
		}
	}

	return fmt.Errorf("%w: %s: %v", category, op, err)
}
