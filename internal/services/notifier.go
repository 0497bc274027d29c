package services

import (
	"errors"

	"swiftresponse/internal/realtime"
)

// Websocket message types pushed by the services.
const (
	MessageRealtime          = "realtime"
	MessageEmergencyAssigned = "emergency_assigned"
	MessageStatusUpdate      = "status_update"
	MessageSOSCountdown      = "sos_countdown"
	MessageSOSCancelled      = "sos_cancelled"
	MessageSOSTriggered      = "sos_triggered"
	MessageSOSFailed         = "sos_failed"
	MessageAlertOffered      = "alert_offered"
	MessageAlertCountdown    = "alert_countdown"
	MessageAlertExpired      = "alert_expired"
)

var ErrNotConnected = errors.New("client not connected")

// ClientNotifier delivers messages to connected clients. The websocket hub
// implements it.
type ClientNotifier interface {
	SendToUser(userID, msgType string, data interface{}) int
	SendToRoom(room, msgType string, data interface{}) int
}

// userSink forwards realtime session messages to every connection of a
// user.
func userSink(notifier ClientNotifier, userID string) realtime.Sink {
	return realtime.SinkFunc(func(msg realtime.Message) error {
		if notifier.SendToUser(userID, MessageRealtime, msg) == 0 {
			return ErrNotConnected
		}
		return nil
	})
}
