package relay

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	relayModel "github.com/zhouzirui/gemini-relay/backend/internal/model/relay"
	relayService "github.com/zhouzirui/gemini-relay/backend/internal/service/relay"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// handleWebSocket 每个入站帧 {id?, prompt} 独立中继一次，并按完成顺序回写一个结果帧。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu  sync.Mutex
		inflight sync.WaitGroup
	)
	// In-flight prompts finish writing before the connection is closed.
	defer inflight.Wait()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	log.Printf("[websocket] new relay connection from %s", r.RemoteAddr)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		id := gjson.GetBytes(frame, "id").String()
		if id == "" {
			id = uuid.NewString()
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			resp := h.answer(context.WithoutCancel(ctx), id, frame)

			writeMu.Lock()
			defer writeMu.Unlock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(resp); err != nil {
				log.Printf("[websocket] write reply failed id=%s: %v", id, err)
			}
		}()
	}
}

// answer runs the same pipeline as POST /api/gemini for a single frame.
func (h *Handler) answer(ctx context.Context, id string, frame []byte) relayModel.SocketResponse {
	prompt, err := relayService.PromptFromJSON(frame)
	if err == nil {
		var reply string
		reply, err = h.relaySvc.Generate(ctx, prompt)
		if err == nil {
			return relayModel.SocketResponse{ID: id, Status: http.StatusOK, Reply: reply}
		}
	}

	status, payload := classifyError(err)
	return relayModel.SocketResponse{
		ID:     id,
		Status: status,
		Error:  payload.Error,
		Detail: payload.Detail,
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
