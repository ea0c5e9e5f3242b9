package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/claude/gymbro/internal/bot"
)

const maxVoiceBytes = 16 << 20

// chatMessage is the body of POST /api/v1/chat/messages. The voice endpoint
// takes the same fields as multipart form values plus an "audio" file.
type chatMessage struct {
	ConversationID string `json:"conversation_id"`
	Login          string `json:"login"`
	DisplayName    string `json:"display_name"`
	Text           string `json:"text"`
}

func (m chatMessage) validate() string {
	switch {
	case strings.TrimSpace(m.ConversationID) == "":
		return "conversation_id is required"
	case strings.TrimSpace(m.Login) == "":
		return "login is required"
	}
	return ""
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	reply := s.chat.Handle(r.Context(), bot.Message{
		Conversation: req.ConversationID,
		Login:        req.Login,
		DisplayName:  req.DisplayName,
		Text:         req.Text,
	})
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChatVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVoiceBytes)
	if err := r.ParseMultipartForm(maxVoiceBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form: " + err.Error()})
		return
	}
	req := chatMessage{
		ConversationID: r.FormValue("conversation_id"),
		Login:          r.FormValue("login"),
		DisplayName:    r.FormValue("display_name"),
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio file is required"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading audio: " + err.Error()})
		return
	}
	if len(audio) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio file is empty"})
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = "audio/ogg"
	}

	reply := s.chat.Handle(r.Context(), bot.Message{
		Conversation: req.ConversationID,
		Login:        req.Login,
		DisplayName:  req.DisplayName,
		Audio:        audio,
		AudioMIME:    mime,
	})
	writeJSON(w, http.StatusOK, reply)
}
