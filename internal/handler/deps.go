package handler

import (
	"gatherchat/internal/app/chat"
	"gatherchat/internal/app/delivery"
	"gatherchat/internal/app/message"
	"gatherchat/internal/app/storage"
	"gatherchat/internal/configs"
)

// AppDeps bundles what the handlers need. Media is nil when image messages are disabled.
type AppDeps struct {
	Config     *configs.AppConfig
	Manager    *chat.Manager
	Messages   *message.Service
	Dispatcher *delivery.Dispatcher
	Media      *storage.MediaResolver
}
