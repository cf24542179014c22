package relay

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	relayModel "github.com/zhouzirui/gemini-relay/backend/internal/model/relay"
	relayService "github.com/zhouzirui/gemini-relay/backend/internal/service/relay"
	"github.com/zhouzirui/gemini-relay/backend/pkg/utils"
)

const maxRequestBytes = 1 << 20

// Handler 文本生成中继的HTTP处理器
type Handler struct {
	relaySvc *relayService.Service
	upgrader websocket.Upgrader
}

// New 创建中继处理器
func New(relaySvc *relayService.Service) *Handler {
	return &Handler{
		relaySvc: relaySvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册中继相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/gemini", h.handleGenerate)
	r.Get("/gemini/ws", h.handleWebSocket)
}

// handleGenerate 接收 {prompt}，调用上游并返回 {reply}
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, err := relayService.PromptFromJSON(body)
	if err != nil {
		h.respondError(w, err)
		return
	}

	// 客户端断开不会取消上游调用。
	ctx := context.WithoutCancel(r.Context())

	reply, err := h.relaySvc.Generate(ctx, prompt)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, relayModel.GenerateResponse{Reply: reply})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status, payload := classifyError(err)
	if status == http.StatusBadGateway {
		utils.RespondErrorDetail(w, status, payload.Error, payload.Detail)
		return
	}
	utils.RespondError(w, status, payload.Error)
}

// classifyError maps relay errors onto the HTTP status table and logs every
// failure except plain validation errors.
func classifyError(err error) (int, relayModel.ErrorResponse) {
	var (
		credErr     *relayService.CredentialError
		upstreamErr *relayService.UpstreamError
	)

	switch {
	case errors.Is(err, relayService.ErrPromptRequired):
		return http.StatusBadRequest, relayModel.ErrorResponse{Error: relayService.ErrPromptRequired.Error()}
	case errors.As(err, &credErr):
		log.Printf("[relay] configuration error: %v", credErr)
		return http.StatusInternalServerError, relayModel.ErrorResponse{Error: credErr.Error()}
	case errors.As(err, &upstreamErr):
		log.Printf("[relay] upstream error status=%d body=%q", upstreamErr.StatusCode, upstreamErr.Body)
		return http.StatusBadGateway, relayModel.ErrorResponse{Error: "Upstream error", Detail: upstreamErr.Body}
	default:
		log.Printf("[relay] error contacting upstream: %v", err)
		return http.StatusInternalServerError, relayModel.ErrorResponse{Error: err.Error()}
	}
}
