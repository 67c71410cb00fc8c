package notify

import (
	"go.uber.org/zap"
)

// Notifier delivers one message to staff. Email, SMS or chat backends plug in here.
type Notifier interface {
	Notify(subject, message string) error
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) Notify(subject, message string) error {
	n.log.Info(subject, zap.String("message", message))
	return nil
}
