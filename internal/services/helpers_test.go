package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"swiftresponse/internal/broadcast"
	"swiftresponse/internal/countdown"
	"swiftresponse/internal/models"
	"swiftresponse/internal/realtime"
	"swiftresponse/internal/repositories/memory"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/maps"
	"swiftresponse/pkg/push"
	"swiftresponse/pkg/sms"
)

type sentMessage struct {
	Target string
	Type   string
	Data   json.RawMessage
}

// fakeNotifier records every message and treats all users as connected.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *fakeNotifier) record(target, msgType string, data interface{}) int {
	raw, _ := json.Marshal(data)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Target: target, Type: msgType, Data: raw})
	return 1
}

func (n *fakeNotifier) SendToUser(userID, msgType string, data interface{}) int {
	return n.record("user:"+userID, msgType, data)
}

func (n *fakeNotifier) SendToRoom(room, msgType string, data interface{}) int {
	return n.record("room:"+room, msgType, data)
}

func (n *fakeNotifier) messages(target, msgType string) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, m := range n.sent {
		if m.Target == target && (msgType == "" || m.Type == msgType) {
			out = append(out, m)
		}
	}
	return out
}

func (n *fakeNotifier) count(target, msgType string) int {
	return len(n.messages(target, msgType))
}

// realtimeMessages decodes the realtime session messages sent to a user.
func (n *fakeNotifier) realtimeMessages(userID string) []realtime.Message {
	var out []realtime.Message
	for _, m := range n.messages("user:"+userID, MessageRealtime) {
		var msg realtime.Message
		if err := json.Unmarshal(m.Data, &msg); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []*sms.SMSRequest
	fail bool
}

func (r *recordingSMS) SendSMS(_ context.Context, req *sms.SMSRequest) (*sms.SMSResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
	if r.fail {
		return &sms.SMSResponse{Success: false, Status: "failed", Error: "gateway down"}, nil
	}
	return &sms.SMSResponse{Success: true, Status: "sent"}, nil
}

func (r *recordingSMS) Name() string { return "recording" }

func (r *recordingSMS) messages() []*sms.SMSRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sms.SMSRequest(nil), r.sent...)
}

// stubRouter answers distance and directions from fixed data, or fails.
type stubRouter struct {
	err        error
	elements   []maps.DistanceElement
	directions *maps.DirectionsResponse
	calls      int
	mu         sync.Mutex
}

func (r *stubRouter) GetDirections(_ context.Context, _ *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.directions, nil
}

func (r *stubRouter) CalculateDistance(_ context.Context, _ *maps.DistanceRequest) (*maps.DistanceResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &maps.DistanceResponse{Rows: []maps.DistanceRow{{Elements: r.elements}}}, nil
}

// harness wires the services over in-memory stores and the local feed.
type harness struct {
	ctx context.Context

	emergencies *memory.EmergencyRepository
	users       *memory.UserRepository
	medical     *memory.MedicalProfileRepository
	drivers     *memory.DriverRepository
	sessions    *memory.DriverSessionStore
	hospitals   *memory.HospitalRepository

	feed     *realtime.LocalFeed
	notifier *fakeNotifier
	sms      *recordingSMS
	router   *stubRouter
	registry *broadcast.Registry
	gate     *countdown.Gate

	dispatch      DispatchService
	realtime      RealtimeService
	notifications NotificationService
	locations     LocationService
	advisor       HospitalAdvisor
	sos           SOSService
	driverSession DriverSessionService
	profiles      ProfileService
}

const (
	testWindow = 40 * time.Millisecond
	testTick   = 10 * time.Millisecond

	// Alerts expire after testAlertSeconds ticks, 300ms with testTick.
	testAlertSeconds = 30
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	log := logger.Discard()

	h := &harness{
		ctx:         ctx,
		emergencies: memory.NewEmergencyRepository(),
		users:       memory.NewUserRepository(),
		medical:     memory.NewMedicalProfileRepository(),
		drivers:     memory.NewDriverRepository(),
		sessions:    memory.NewDriverSessionStore(time.Hour),
		hospitals:   memory.NewHospitalRepository(models.CuratedHospitals()),
		feed:        realtime.NewLocalFeed(log),
		notifier:    &fakeNotifier{},
		sms:         &recordingSMS{},
		router:      &stubRouter{err: context.DeadlineExceeded},
		gate:        countdown.NewGate(countdown.WithTick(testTick)),
	}
	h.registry = broadcast.NewRegistry(ctx, map[broadcast.Kind]time.Duration{
		broadcast.KindDriver:  testWindow,
		broadcast.KindPatient: testWindow,
	}, broadcast.DefaultValidator(), log)

	h.dispatch = NewDispatchService(h.emergencies, h.feed, log)
	h.realtime = NewRealtimeService(ctx, h.feed, h.dispatch, h.notifier, RealtimeOptions{}, log)
	h.notifications = NewNotificationService(h.hospitals, h.users, h.notifier, push.NewLogProvider(log), h.sms, log)
	h.locations = NewLocationService(h.registry, broadcast.DefaultValidator(), h.dispatch, h.drivers, h.sessions, h.users,
		nil, cache.NewLocalCache(time.Minute, time.Minute), time.Second, log)
	h.advisor = NewHospitalAdvisor(h.dispatch, h.hospitals, h.sessions, h.router, nil,
		AdvisorOptions{RoutingTimeout: 200 * time.Millisecond}, log)
	h.sos = NewSOSService(ctx, h.dispatch, h.users, h.medical, h.notifications, h.realtime, h.notifier, h.gate, 3, log)
	h.driverSession = NewDriverSessionService(ctx, h.sessions, h.dispatch, h.realtime, h.notifier, h.gate, testAlertSeconds, log)
	h.profiles = NewProfileService(h.users, h.medical, h.hospitals, log)

	h.dispatch.OnTransition(h.notifications.HandleTransition)
	h.dispatch.OnTransition(h.locations.HandleTransition)
	h.dispatch.OnTransition(h.driverSession.HandleTransition)

	t.Cleanup(func() {
		h.registry.StopAll()
		cancel()
		h.feed.Close()
	})
	return h
}

func (h *harness) addPatient(t *testing.T, id string, mutate func(u *models.UserProfile)) *models.UserProfile {
	t.Helper()
	user := &models.UserProfile{
		ID:          id,
		Name:        "Asha",
		Phone:       "+919812345678",
		FamilyPhone: "+919800000001",
	}
	if mutate != nil {
		mutate(user)
	}
	if err := h.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (h *harness) addDriver(t *testing.T, id string) {
	t.Helper()
	if err := h.drivers.Create(context.Background(), &models.DriverProfile{ID: id, Name: "Ravi", VehicleNumber: "RJ14 AB 1234"}); err != nil {
		t.Fatalf("create driver: %v", err)
	}
}

func (h *harness) createEmergency(t *testing.T, patientID string) *models.EmergencyRecord {
	t.Helper()
	rec, err := h.dispatch.Create(context.Background(), &CreateEmergencyRequest{
		EmergencyType: "accident",
		Patient:       models.PatientSnapshot{UserID: patientID, Name: "Asha", Phone: "+919812345678"},
		Location:      models.EmergencyLocation{Latitude: 19.076, Longitude: 72.877},
	})
	if err != nil {
		t.Fatalf("create emergency: %v", err)
	}
	return rec
}

func sampleAt(lat, lng float64) models.LocationSample {
	return models.LocationSample{Latitude: lat, Longitude: lng, Accuracy: 12, RecordedAt: time.Now()}
}
