// Package chat contains the Twitch chat recorder.
//
// StartTwitchChatRecorder connects to Twitch IRC for the configured channel
// and persists messages into the chat_messages table, using both absolute and
// relative (to VOD start) timestamps so recorded chat can be analyzed the same
// way as imported chat replays.
//
// Credentials: the IRC client requires a bot username and an OAuth token with
// chat:read/chat:edit scopes. An app access (client credentials) token will
// not work for IRC.
package chat
