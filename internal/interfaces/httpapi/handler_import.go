package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

const maxImportRequestBody = 1 << 20 // 1 MiB

func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartImport")
	defer span.End()

	providerName := strings.TrimSpace(r.PathValue("provider"))

	var req startImportRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportRequestBody))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.importService.ImportLeagues(ctx, usecase.ImportInput{
		UserID:      req.UserID,
		Provider:    providerName,
		Credentials: req.Credentials.toDomain(),
		MaxWorkers:  req.MaxWorkers,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "import failed",
			"provider", providerName,
			"user_id", req.UserID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListImportRuns(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListImportRuns")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = v
	}

	runs, err := h.queryService.ListImportRuns(ctx, userID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list import runs failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]importRunDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, importRunToDTO(ctx, run))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
