package websocket

// Notifier sends typed payloads through the hub. It satisfies the
// client notifier the services depend on.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) SendToUser(userID, msgType string, data interface{}) int {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		n.hub.logger.WithError(err).WithField("type", msgType).Error("Failed to encode websocket message")
		return 0
	}
	return n.hub.SendToUser(userID, msg)
}

func (n *Notifier) SendToRoom(room, msgType string, data interface{}) int {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		n.hub.logger.WithError(err).WithField("type", msgType).Error("Failed to encode websocket message")
		return 0
	}
	return n.hub.SendToRoom(room, msg)
}
