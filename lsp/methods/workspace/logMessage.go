package workspace

import (
	"fmt"

	"harperls.dev/harper-ls/internal/log"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LogError logs an error to stderr and, when a client is connected, sends
// it as window/logMessage.
func LogError(context *glsp.Context, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	log.Error("%s", message)
	logMessage(context, protocol.MessageTypeError, message)
}

// LogWarning logs a warning to stderr and, when a client is connected,
// sends it as window/logMessage.
func LogWarning(context *glsp.Context, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	log.Warn("%s", message)
	logMessage(context, protocol.MessageTypeWarning, message)
}

// ShowMessage sends a message to be displayed to the user
func ShowMessage(context *glsp.Context, messageType protocol.MessageType, message string) {
	if !canNotify(context) {
		return
	}
	go context.Notify(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    messageType,
		Message: message,
	})
}

func logMessage(context *glsp.Context, messageType protocol.MessageType, message string) {
	if !canNotify(context) {
		return
	}
	go context.Notify(protocol.ServerWindowLogMessage, &protocol.LogMessageParams{
		Type:    messageType,
		Message: message,
	})
}

func canNotify(context *glsp.Context) bool {
	return context != nil && context.Notify != nil
}
