package handlers

import (
	"context"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/websocket"
)

// Inbound websocket message types.
const (
	MessageLocationUpdate = "location_update"
	MessageJoinEmergency  = "join_emergency"
	MessagePing           = "ping"
	MessagePong           = "pong"
	MessageError          = "error"
)

const socketOpTimeout = 10 * time.Second

type joinEmergency struct {
	EmergencyID string `json:"emergency_id"`
}

type socketError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RealtimeHandler ties websocket connections to the realtime views of their
// role. Hospitals get the hospital view, drivers resume their session and
// patients follow their active emergency.
type RealtimeHandler struct {
	hub             *websocket.Hub
	dispatchService services.DispatchService
	realtimeService services.RealtimeService
	sessionService  services.DriverSessionService
	locationService services.LocationService
	logger          *logger.Logger
}

func NewRealtimeHandler(
	hub *websocket.Hub,
	dispatchService services.DispatchService,
	realtimeService services.RealtimeService,
	sessionService services.DriverSessionService,
	locationService services.LocationService,
	logger *logger.Logger,
) *RealtimeHandler {
	h := &RealtimeHandler{
		hub:             hub,
		dispatchService: dispatchService,
		realtimeService: realtimeService,
		sessionService:  sessionService,
		locationService: locationService,
		logger:          logger.WithField("handler", "realtime"),
	}
	hub.OnConnect(h.OnConnect)
	hub.OnDisconnect(h.OnDisconnect)
	hub.OnMessage(h.OnMessage)
	return h
}

func (h *RealtimeHandler) OnConnect(client *websocket.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), socketOpTimeout)
	defer cancel()
	log := h.logger.WithFields(map[string]interface{}{"user_id": client.UserID, "user_type": client.UserType})

	switch models.UserType(client.UserType) {
	case models.UserTypeHospital:
		h.hub.JoinRoom(client, utils.RoomHospitalPrefix+client.UserID)
		if err := h.realtimeService.OpenHospital(ctx, client.UserID); err != nil {
			log.WithError(err).Warn("Failed to open hospital view")
		}

	case models.UserTypeDriver:
		session, err := h.sessionService.Session(ctx, client.UserID)
		if err != nil {
			log.WithError(err).Warn("Failed to load driver session")
			return
		}
		if session.HasActiveTrip() {
			h.hub.JoinRoom(client, utils.RoomEmergencyPrefix+session.TripID)
		}
		if session.Online {
			if _, err := h.sessionService.GoOnline(ctx, client.UserID); err != nil {
				log.WithError(err).Warn("Failed to resume driver session")
			}
		}

	case models.UserTypePatient:
		records, err := h.dispatchService.List(ctx, models.EmergencyFilter{
			PatientUserID: client.UserID,
			Status:        models.ActiveStatuses(),
			Limit:         1,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to load active emergencies")
			return
		}
		if len(records) == 0 {
			return
		}
		h.hub.JoinRoom(client, utils.RoomEmergencyPrefix+records[0].ID)
		if err := h.realtimeService.OpenTrip(ctx, models.UserTypePatient, client.UserID, records[0].ID); err != nil {
			log.WithError(err).Warn("Failed to open trip view")
		}
	}
}

// OnDisconnect closes the views once the owner's last connection is gone.
func (h *RealtimeHandler) OnDisconnect(client *websocket.Client) {
	if h.hub.IsOnline(client.UserID) {
		return
	}
	h.realtimeService.CloseOwner(models.UserType(client.UserType), client.UserID)
}

func (h *RealtimeHandler) OnMessage(client *websocket.Client, msg websocket.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), socketOpTimeout)
	defer cancel()

	switch msg.Type {
	case MessagePing:
		client.SendData(MessagePong, nil)

	case MessageLocationUpdate:
		var request validators.LocationUpdateRequest
		if err := msg.Decode(&request); err != nil {
			h.reply(client, "INVALID_MESSAGE", err.Error())
			return
		}
		if errs := validators.ValidateLocationUpdate(&request); len(errs) > 0 {
			h.reply(client, "VALIDATION_ERROR", errs.Error())
			return
		}
		var err error
		switch models.UserType(client.UserType) {
		case models.UserTypeDriver:
			err = h.locationService.UpdateDriverLocation(ctx, client.UserID, request.ToSample())
		case models.UserTypePatient:
			err = h.locationService.UpdatePatientLocation(ctx, client.UserID, request.ToSample())
		default:
			h.reply(client, "FORBIDDEN", "role cannot share location")
			return
		}
		if err != nil {
			h.reply(client, "LOCATION_REJECTED", err.Error())
		}

	case MessageJoinEmergency:
		var request joinEmergency
		if err := msg.Decode(&request); err != nil || request.EmergencyID == "" {
			h.reply(client, "INVALID_MESSAGE", "emergency_id is required")
			return
		}
		record, err := h.dispatchService.Get(ctx, request.EmergencyID)
		if err != nil {
			h.reply(client, "NOT_FOUND", err.Error())
			return
		}
		if !canView(record, client.UserID, models.UserType(client.UserType)) {
			h.reply(client, "FORBIDDEN", "not allowed to follow this emergency")
			return
		}
		h.hub.JoinRoom(client, utils.RoomEmergencyPrefix+record.ID)

	default:
		h.reply(client, "UNKNOWN_MESSAGE", "unsupported message type: "+msg.Type)
	}
}

func (h *RealtimeHandler) reply(client *websocket.Client, code, message string) {
	if err := client.SendData(MessageError, socketError{Code: code, Message: message}); err != nil {
		h.logger.WithError(err).WithField("user_id", client.UserID).Debug("Failed to send error reply")
	}
}
