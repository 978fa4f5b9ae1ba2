package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

// 画像プロキシの結果ラベル
const (
	imageOutcomeOK       = "ok"
	imageOutcomeRejected = "rejected"
	imageOutcomeFailed   = "fetch_failed"
	imageOutcomeTooLarge = "too_large"
	imageOutcomeNotImage = "not_image"
)

// URLValidator は画像URLの事前検証を行う。*security.ImageGuardが満たす。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// ImageProxyRecorder は画像プロキシの結果の記録先。
type ImageProxyRecorder interface {
	RecordImageProxy(outcome string)
}

// ImageHandlerConfig は画像プロキシの設定。
type ImageHandlerConfig struct {
	// AssetBaseURL は相対パスのsrcを解決する基準URL。
	AssetBaseURL string
	// MaxSize は取得する画像の最大バイト数。
	MaxSize int64
}

// ImageHandler はカタログ画像のプロキシ。
// 事前検証に加え、SSRF防止済みのクライアントで取得し、image/*のみをサイズ上限付きで返す。
type ImageHandler struct {
	validator URLValidator
	client    *http.Client
	metrics   ImageProxyRecorder
	logger    *slog.Logger
	assetBase *url.URL
	maxSize   int64
}

// NewImageHandler はImageHandlerを生成する。metricsはnilでもよい。
func NewImageHandler(validator URLValidator, client *http.Client, metrics ImageProxyRecorder, logger *slog.Logger, cfg ImageHandlerConfig) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(cfg.AssetBaseURL)
	if err != nil || base.Host == "" {
		base = nil
	}
	return &ImageHandler{
		validator: validator,
		client:    client,
		metrics:   metrics,
		logger:    logger,
		assetBase: base,
		maxSize:   cfg.MaxSize,
	}
}

var errImageTooLarge = errors.New("image exceeds size limit")

// Proxy は画像を取得して返す。
// GET /api/images?src=
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	src := resolveAssetURL(h.assetBase, r.URL.Query().Get("src"))
	if err := h.validator.ValidateURL(src); err != nil {
		h.record(imageOutcomeRejected)
		h.logger.Warn("image url rejected",
			slog.String("src", src),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError(err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, src, nil)
	if err != nil {
		h.record(imageOutcomeRejected)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError("malformed URL"))
		return
	}
	req.Header.Set("Accept", "image/*")

	resp, err := h.client.Do(req)
	if err != nil {
		h.fetchFailed(w, imageOutcomeFailed, src, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.fetchFailed(w, imageOutcomeFailed, src, fmt.Errorf("upstream returned status %d", resp.StatusCode))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		h.fetchFailed(w, imageOutcomeNotImage, src, fmt.Errorf("unexpected content type %q", contentType))
		return
	}

	if resp.ContentLength > h.maxSize {
		h.fetchFailed(w, imageOutcomeTooLarge, src, errImageTooLarge)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
	if err != nil {
		h.fetchFailed(w, imageOutcomeFailed, src, err)
		return
	}
	if int64(len(body)) > h.maxSize {
		h.fetchFailed(w, imageOutcomeTooLarge, src, errImageTooLarge)
		return
	}

	h.record(imageOutcomeOK)
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *ImageHandler) fetchFailed(w http.ResponseWriter, outcome, src string, err error) {
	h.record(outcome)
	h.logger.Warn("image fetch failed",
		slog.String("src", src),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
	writeAPIErrorResponse(w, http.StatusBadGateway, model.NewImageFetchFailedError())
}

func (h *ImageHandler) record(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordImageProxy(outcome)
	}
}
