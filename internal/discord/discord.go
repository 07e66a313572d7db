package discord

import "context"

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
}

// Left reports whether the user moved out of channelID.
func (e VoiceStateEvent) Left(channelID string) bool {
	return e.BeforeChannelID == channelID && e.AfterChannelID != channelID
}

type VoiceParticipant struct {
	UserID string
	IsBot  bool
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) error
	// OnVoiceStateUpdate registers handler and returns a func that removes it.
	OnVoiceStateUpdate(handler func(VoiceStateEvent)) func()
	ListVoiceChannelParticipants(guildID, channelID string) ([]VoiceParticipant, error)
	GetBotUserID() (string, error)
}

type VoiceConnection interface {
	Disconnect() error
	// ReceiveAudio blocks, delivering opus packets until the connection closes.
	ReceiveAudio(callback func(userID string, opusPacket []byte))
}
