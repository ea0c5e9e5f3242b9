// Package whatsapp connects the bot to WhatsApp as a linked device.
//
// Messages from one chat are handled one at a time in arrival order; chats
// never wait on each other.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"github.com/claude/gymbro/internal/bot"
	"github.com/claude/gymbro/internal/dialogue"
	"github.com/claude/gymbro/internal/serial"
)

// Handler answers one chat message. *bot.Bot satisfies it.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message) bot.Reply
}

// Transport owns the whatsmeow client and dispatches incoming messages.
type Transport struct {
	client  *whatsmeow.Client
	handler Handler
	log     *slog.Logger

	lanes   serial.Queue
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex // guards closing and wg.Add
	closing bool
}

// New opens the device store at storePath (SQLite) and prepares a client.
// Call Start to connect.
func New(ctx context.Context, storePath string, handler Handler, log *slog.Logger) (*Transport, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", storePath)
	container, err := sqlstore.New(ctx, "sqlite", dsn, newLogger(log, "store"))
	if err != nil {
		return nil, fmt.Errorf("opening whatsapp store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading whatsapp device: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		client:  whatsmeow.NewClient(device, newLogger(log, "client")),
		handler: handler,
		log:     log,
		ctx:     runCtx,
		cancel:  cancel,
	}
	t.client.AddEventHandler(t.handleEvent)
	return t, nil
}

// Start connects to WhatsApp. An unlinked device logs QR codes to scan from
// the phone's "Linked devices" screen.
func (t *Transport) Start(ctx context.Context) error {
	if t.client.Store.ID != nil {
		if err := t.client.Connect(); err != nil {
			return fmt.Errorf("connecting whatsapp: %w", err)
		}
		return nil
	}

	qrChan, err := t.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("requesting whatsapp QR channel: %w", err)
	}
	if err := t.client.Connect(); err != nil {
		return fmt.Errorf("connecting whatsapp: %w", err)
	}
	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				t.log.Info("whatsapp link required, scan QR code", "code", evt.Code)
			} else {
				t.log.Info("whatsapp login event", "event", evt.Event)
			}
		}
	}()
	return nil
}

// Shutdown stops accepting messages, waits for in-flight replies until ctx
// ends and disconnects.
func (t *Transport) Shutdown(ctx context.Context) {
	t.drain(ctx)
	t.cancel()
	t.client.Disconnect()
}

// drain refuses new work and waits for dispatched work until ctx ends.
func (t *Transport) drain(ctx context.Context) {
	t.mu.Lock()
	t.closing = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.log.Warn("whatsapp shutdown: abandoning in-flight messages", "error", ctx.Err())
	}
}

func (t *Transport) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		t.onMessage(v)
	case *events.Connected:
		t.log.Info("whatsapp connected")
	case *events.LoggedOut:
		t.log.Warn("whatsapp device logged out", "reason", v.Reason)
	}
}

// onMessage runs on whatsmeow's event goroutine, so the lane slot is reserved
// here to keep arrival order and the work itself runs on its own goroutine.
func (t *Transport) onMessage(v *events.Message) {
	in, ok := inbound(v)
	if !ok {
		return
	}
	t.dispatch(in.chat.String(), func() { t.process(in) })
}

// dispatch queues fn on the lane for key. It reports false once drain has
// started, in which case fn never runs.
func (t *Transport) dispatch(key string, fn func()) bool {
	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		return false
	}
	ticket := t.lanes.Reserve(key)
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer ticket.Done()
		if err := ticket.Wait(t.ctx); err != nil {
			return
		}
		fn()
	}()
	return true
}

func (t *Transport) process(in incoming) {
	msg := in.msg
	if in.audio != nil {
		data, err := t.client.Download(t.ctx, in.audio)
		if err != nil {
			t.log.Warn("downloading voice note", "chat", in.chat, "error", err)
			t.send(in.chat, dialogue.MsgUnintelligible)
			return
		}
		msg.Audio = data
	}

	reply := t.handler.Handle(t.ctx, msg)
	if reply.Text == "" {
		return
	}
	t.send(in.chat, reply.Text)
}

func (t *Transport) send(chat types.JID, text string) {
	_, err := t.client.SendMessage(t.ctx, chat, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		t.log.Error("sending whatsapp reply", "chat", chat, "error", err)
	}
}

// incoming is a message reduced to what the bot needs. audio is set for
// voice notes and still has to be downloaded.
type incoming struct {
	chat  types.JID
	msg   bot.Message
	audio *waE2E.AudioMessage
}

func inbound(v *events.Message) (incoming, bool) {
	if v.Info.IsFromMe || v.Message == nil {
		return incoming{}, false
	}

	in := incoming{
		chat: v.Info.Chat,
		msg: bot.Message{
			Conversation: "whatsapp:" + v.Info.Chat.String(),
			Login:        "whatsapp:" + v.Info.Sender.User,
			DisplayName:  v.Info.PushName,
		},
	}

	if audio := v.Message.GetAudioMessage(); audio != nil {
		in.audio = audio
		mime, _, _ := strings.Cut(audio.GetMimetype(), ";")
		if mime == "" {
			mime = "audio/ogg"
		}
		in.msg.AudioMIME = strings.TrimSpace(mime)
		return in, true
	}

	in.msg.Text = messageText(v.Message)
	if strings.TrimSpace(in.msg.Text) == "" {
		return incoming{}, false
	}
	return in, true
}

func messageText(m *waE2E.Message) string {
	switch {
	case m.GetConversation() != "":
		return m.GetConversation()
	case m.GetExtendedTextMessage().GetText() != "":
		return m.GetExtendedTextMessage().GetText()
	default:
		return m.GetImageMessage().GetCaption()
	}
}
