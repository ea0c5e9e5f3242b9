package whatsapp

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/claude/gymbro/internal/bot"
)

var ana = types.NewJID("34600112233", types.DefaultUserServer)

func message(m *waE2E.Message, fromMe bool) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: ana, Sender: ana, IsFromMe: fromMe},
			PushName:      "Ana",
		},
		Message: m,
	}
}

// TestInboundText verifies the text variants WhatsApp clients send.
func TestInboundText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"conversation", &waE2E.Message{Conversation: proto.String("press banca 3x8")}, "press banca 3x8"},
		{"extended", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("sentadilla 100kg")}}, "sentadilla 100kg"},
		{"caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("peso muerto 5x5")}}, "peso muerto 5x5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := inbound(message(tt.msg, false))
			if !ok {
				t.Fatal("message dropped")
			}
			want := bot.Message{
				Conversation: "whatsapp:" + ana.String(),
				Login:        "whatsapp:34600112233",
				DisplayName:  "Ana",
				Text:         tt.want,
			}
			if diff := cmp.Diff(want, in.msg); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
			if in.chat != ana || in.audio != nil {
				t.Errorf("chat=%v audio=%v", in.chat, in.audio)
			}
		})
	}
}

// TestInboundVoice verifies voice notes keep the bare MIME type for download.
func TestInboundVoice(t *testing.T) {
	audio := &waE2E.AudioMessage{Mimetype: proto.String("audio/ogg; codecs=opus"), PTT: proto.Bool(true)}
	in, ok := inbound(message(&waE2E.Message{AudioMessage: audio}, false))
	if !ok {
		t.Fatal("voice note dropped")
	}
	if in.audio != audio || in.msg.AudioMIME != "audio/ogg" || in.msg.Text != "" {
		t.Errorf("incoming = %+v", in)
	}
}

// TestInboundSkips verifies own messages, empty bodies and unsupported types are ignored.
func TestInboundSkips(t *testing.T) {
	for name, ev := range map[string]*events.Message{
		"from me":  message(&waE2E.Message{Conversation: proto.String("hola")}, true),
		"nil body": message(nil, false),
		"blank":    message(&waE2E.Message{Conversation: proto.String("   ")}, false),
		"sticker":  message(&waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, false),
	} {
		if _, ok := inbound(ev); ok {
			t.Errorf("%s: message not skipped", name)
		}
	}
}

func newTestTransport() *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{ctx: ctx, cancel: cancel, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// TestDrainWaitsForDispatched verifies that every message accepted while
// shutdown races with incoming traffic has finished once drain returns, and
// that nothing is accepted afterwards.
func TestDrainWaitsForDispatched(t *testing.T) {
	tr := newTestTransport()
	defer tr.cancel()

	var accepted, ran atomic.Int64
	var senders sync.WaitGroup
	for i := range 8 {
		senders.Add(1)
		go func() {
			defer senders.Done()
			for range 50 {
				if tr.dispatch(string(rune('a'+i)), func() { ran.Add(1) }) {
					accepted.Add(1)
				}
			}
		}()
	}

	tr.drain(context.Background())
	if got, want := ran.Load(), accepted.Load(); got < want {
		t.Errorf("ran %d of %d accepted messages before drain returned", got, want)
	}
	senders.Wait()
	if got, want := ran.Load(), accepted.Load(); got != want {
		t.Errorf("ran %d, accepted %d", got, want)
	}

	if tr.dispatch("late", func() { t.Error("late message ran") }) {
		t.Error("dispatch accepted a message after drain")
	}
}

// TestDispatchKeepsChatOrder verifies messages from one chat run in arrival
// order.
func TestDispatchKeepsChatOrder(t *testing.T) {
	tr := newTestTransport()
	defer tr.cancel()

	var mu sync.Mutex
	var got []int
	for i := range 20 {
		tr.dispatch("ana", func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	tr.drain(context.Background())

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
