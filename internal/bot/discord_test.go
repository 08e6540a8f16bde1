package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSession struct {
	mu     sync.Mutex
	sent   []string
	opened bool
	closed bool
}

func (m *mockSession) Open() error  { m.opened = true; return nil }
func (m *mockSession) Close() error { m.closed = true; return nil }

func (m *mockSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (m *mockSession) AddHandler(interface{}) func() { return func() {} }

func TestNewDiscordRequiresTokenOrSession(t *testing.T) {
	_, err := NewDiscord(DiscordOpts{}, zap.NewNop())
	require.Error(t, err)

	d, err := NewDiscord(DiscordOpts{Session: &mockSession{}}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestSendChunksLongMessages(t *testing.T) {
	mock := &mockSession{}
	d, err := NewDiscord(DiscordOpts{Session: mock}, zap.NewNop())
	require.NoError(t, err)

	long := strings.Repeat("the goblin staggers back\n", 200) // ~5000 chars
	require.NoError(t, d.Send(context.Background(), "chan-1", long))

	require.Greater(t, len(mock.sent), 1)
	for _, chunk := range mock.sent {
		assert.LessOrEqual(t, len([]rune(chunk)), maxMessageLen)
	}
	assert.Equal(t, long, strings.Join(mock.sent, "\n"))
}

func TestHandleMessageFiltersBotTraffic(t *testing.T) {
	d, err := NewDiscord(DiscordOpts{Session: &mockSession{}}, zap.NewNop())
	require.NoError(t, err)

	got := make(chan InboundMessage, 1)
	d.OnMessage(func(m InboundMessage) { got <- m })
	d.botUserID = "bot-1"

	// Bot authors and the bot itself are dropped.
	d.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		Author: &discordgo.User{ID: "other-bot", Bot: true}, Content: "!roll 1d6",
	}})
	d.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		Author: &discordgo.User{ID: "bot-1"}, Content: "!roll 1d6",
	}})
	select {
	case m := <-got:
		t.Fatalf("bot message was dispatched: %+v", m)
	default:
	}

	d.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "chan-9",
		Author:    &discordgo.User{ID: "user-1", Username: "alice"},
		Content:   "!roll 1d6",
	}})
	m := <-got
	assert.Equal(t, "chan-9", m.ChannelID)
	assert.Equal(t, "user-1", m.UserID)
	assert.Equal(t, "alice", m.Username)
	assert.Equal(t, "!roll 1d6", m.Content)
}

func TestChunkMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "", limit: 10, want: nil},
		{name: "fits", text: "hello\nworld", limit: 20, want: []string{"hello\nworld"}},
		{name: "splits on newline", text: "aaaa\nbbbb\ncccc", limit: 9, want: []string{"aaaa\nbbbb", "cccc"}},
		{name: "hard split overlong line", text: "aaaaaaaaaa", limit: 4, want: []string{"aaaa", "aaaa", "aa"}},
		{name: "overlong line after short one", text: "ab\ncccccc", limit: 5, want: []string{"ab", "ccccc", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkMessage(tt.text, tt.limit))
		})
	}
}
