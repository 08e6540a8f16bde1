// Package bot wires the chat transport to the game: it parses inbound
// `!` commands, runs them against the combat engine under the channel
// lock, and delivers the resulting lines back to the channel.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// maxMessageLen is Discord's hard limit per message; longer output is
// chunked on line boundaries.
const maxMessageLen = 2000

// Transport delivers engine output to a channel. The engine emits plain
// strings; chunking for length limits is the transport's responsibility.
type Transport interface {
	Send(ctx context.Context, channelID, text string) error
}

// session abstracts the discordgo.Session methods we use, enabling test
// mocks.
type discordSession interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// InboundMessage is one chat message handed to the Bot.
type InboundMessage struct {
	ChannelID string
	UserID    string
	Username  string
	Content   string
}

// Discord is the gateway transport. It implements Transport and the
// server.Service start/stop contract.
type Discord struct {
	sess   discordSession
	logger *zap.Logger

	mu            sync.Mutex
	botUserID     string
	onMessage     func(InboundMessage)
	removeHandler func()
	done          chan struct{}
}

// DiscordOpts holds parameters for creating a Discord transport.
type DiscordOpts struct {
	// Token is the bot token. Ignored when Session is injected.
	Token string
	// Session injects a mock session for tests.
	Session discordSession
}

// NewDiscord creates a Discord transport.
//
// Precondition: opts.Token or opts.Session must be set.
func NewDiscord(opts DiscordOpts, logger *zap.Logger) (*Discord, error) {
	d := &Discord{
		sess:   opts.Session,
		logger: logger,
		done:   make(chan struct{}),
	}
	if d.sess == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		dg, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
		d.sess = &realSession{s: dg}
	}
	return d, nil
}

// OnMessage registers the inbound message callback. Each message is
// dispatched on its own goroutine; the per-channel session lock provides
// the ordering guarantee.
//
// Precondition: must be called before Start.
func (d *Discord) OnMessage(fn func(InboundMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessage = fn
}

// Start opens the gateway and blocks until Stop is called.
func (d *Discord) Start() error {
	d.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		d.mu.Lock()
		d.botUserID = r.User.ID
		d.mu.Unlock()
		d.logger.Info("discord connected",
			zap.String("username", r.User.Username),
			zap.String("user_id", r.User.ID),
		)
	})
	remove := d.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		d.handleMessage(m)
	})
	d.mu.Lock()
	d.removeHandler = remove
	d.mu.Unlock()

	if err := d.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	<-d.done
	return nil
}

// Stop closes the gateway connection and unblocks Start.
func (d *Discord) Stop() {
	d.mu.Lock()
	if d.removeHandler != nil {
		d.removeHandler()
		d.removeHandler = nil
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	default:
		close(d.done)
	}
	if err := d.sess.Close(); err != nil {
		d.logger.Warn("closing discord session", zap.Error(err))
	}
}

// Send delivers text to the channel, chunked on line boundaries to fit
// the message length limit.
func (d *Discord) Send(ctx context.Context, channelID, text string) error {
	for _, chunk := range chunkMessage(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.sess.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("discord: send to %s: %w", channelID, err)
		}
	}
	return nil
}

// handleMessage converts a gateway event to an InboundMessage, filtering
// bot traffic.
func (d *Discord) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	d.mu.Lock()
	botID := d.botUserID
	fn := d.onMessage
	d.mu.Unlock()
	if m.Author.ID == botID || fn == nil {
		return
	}

	go fn(InboundMessage{
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		Content:   m.Content,
	})
}

// chunkMessage splits text into pieces of at most limit runes, breaking
// on newlines where possible. An overlong single line is split hard.
func chunkMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			if curLen > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
				curLen = 0
			}
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		// +1 for the joining newline.
		if curLen > 0 && curLen+1+len(runes) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(string(runes))
		curLen += len(runes)
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
